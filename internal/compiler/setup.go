package compiler

import "github.com/specialistvlad/blockgrid/internal/tfir"

// ManagedBy is the default tag value on every resource.
const ManagedBy = "blockgrid"

func providerRequirement(source, version string) tfir.Complex {
	return tfir.Assign(tfir.NewObject().
		Set("source", tfir.String(source)).
		Set("version", tfir.String(version)))
}

// setupItems returns the terraform settings block and the AWS provider.
func setupItems(region, projectName string) []*tfir.Item {
	settings := tfir.NewSetup().
		Set("required_version", tfir.String(">= 1.6.0")).
		Set("required_providers", tfir.Block(tfir.NewObject().
			Set("aws", providerRequirement("hashicorp/aws", "~> 5.0")).
			Set("archive", providerRequirement("hashicorp/archive", "~> 2.4.0")).
			Set("null", providerRequirement("hashicorp/null", "~> 3.2"))))

	provider := tfir.NewProvider("aws").
		Set("region", tfir.String(region)).
		Set("default_tags", tfir.Block(tfir.NewObject().
			Set("tags", tfir.Assign(tfir.NewObject().
				Set("Project", tfir.String(projectName)).
				Set("ManagedBy", tfir.String(ManagedBy))))))

	return []*tfir.Item{settings, provider}
}
