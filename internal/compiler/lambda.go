package compiler

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/specialistvlad/blockgrid/internal/naming"
	"github.com/specialistvlad/blockgrid/internal/project"
	"github.com/specialistvlad/blockgrid/internal/tfir"
)

// Function defaults.
const (
	DefaultRuntime = "provided.al2023"
	DefaultHandler = "bootstrap"
	DefaultTimeout = 60
	DefaultMemory  = 1024

	basicExecutionPolicyARN = "arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"
	vpcAccessPolicyARN      = "arn:aws:iam::aws:policy/service-role/AWSLambdaVPCAccessExecutionRole"
)

// lambda groups the items of one deployed function that later passes touch.
type lambda struct {
	block *project.Function
	fn    *tfir.Item
	role  *tfir.Item
	env   *tfir.Object
}

// setEnv adds or replaces a function environment variable.
func (l *lambda) setEnv(name string, v tfir.Value) {
	l.env.Set(name, v)
}

func basicAssumeRoleDocument(names naming.Namer) *tfir.Item {
	return tfir.NewData("aws_iam_policy_document", names.Scoped("lambda-basic-doc")).
		Set("statement", tfir.NewObject().
			Set("actions", tfir.Strings("sts:AssumeRole")).
			Set("principals", tfir.NewObject().
				Set("type", tfir.String("Service")).
				Set("identifiers", tfir.Strings("lambda.amazonaws.com"))))
}

// goArch maps a function architecture to GOARCH and the docker platform.
func goArch(architecture string) (goarch, platform string) {
	if architecture == "arm64" {
		return "arm64", "linux/arm64"
	}
	return "amd64", "linux/amd64"
}

// envType is the type Lambda accepts for `environment.variables`.
var envType = cty.Map(cty.String)

// envObject turns the project environment into a fresh, key-sorted object
// that later passes extend per function.
func envObject(env map[string]string) (*tfir.Object, error) {
	val, err := gocty.ToCtyValue(env, envType)
	if err != nil {
		return nil, fmt.Errorf("project environment: %w", err)
	}
	if val.IsNull() || val.LengthInt() == 0 {
		return tfir.NewObject(), nil
	}
	v, err := tfir.From(val)
	if err != nil {
		return nil, fmt.Errorf("project environment: %w", err)
	}
	o, ok := v.(*tfir.Object)
	if !ok {
		return nil, fmt.Errorf("project environment: got %T, want object", v)
	}
	return o, nil
}

// buildLambda creates role, execution attachment, build pipeline and the
// function itself, plus the VPC attachment when networking allows it.
func (b *builder) buildLambda(block *project.Function) (*lambda, []*tfir.Item, error) {
	lp := b.namer.Function(block.DeployID, block.ID)
	folder := project.FolderName(block.Title, block.ID)
	props := block.LambdaOrZero()

	role := tfir.NewResource("aws_iam_role", lp+"-role").
		Set("name", tfir.String(lp+"-role")).
		Set("assume_role_policy", b.basicDoc.Ref("json"))
	execAttachment := tfir.NewResource("aws_iam_role_policy_attachment", lp+"-exec-attachment").
		Set("role", role.Ref("name")).
		Set("policy_arn", tfir.String(basicExecutionPolicyARN))

	env, err := envObject(b.env)
	if err != nil {
		return nil, nil, err
	}
	l := &lambda{block: block, role: role, env: env}
	items := []*tfir.Item{role, execAttachment}

	var pipeline []*tfir.Item
	if props.DeployAsDockerImage {
		l.fn, pipeline, err = b.imageFunction(lp, folder, props, role, l.env)
	} else {
		l.fn, pipeline = b.zipFunction(lp, folder, block.ID, props, role, l.env)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("function %q: %w", block.ID, err)
	}
	items = append(items, pipeline...)
	items = append(items, l.fn)

	if b.network.hasLambdaNetworking() {
		l.fn.Set("vpc_config", tfir.NewObject().
			Set("subnet_ids", tfir.List{b.network.privateSubnetA.Ref("id"), b.network.privateSubnetB.Ref("id")}).
			Set("security_group_ids", tfir.List{b.network.lambdaSG.Ref("id")}))
		items = append(items, tfir.NewResource("aws_iam_role_policy_attachment", lp+"-vpc-attachment").
			Set("role", role.Ref("name")).
			Set("policy_arn", tfir.String(vpcAccessPolicyARN)))
	}
	return l, items, nil
}

func buildTrigger() tfir.Complex {
	return tfir.Assign(tfir.NewObject().Set("always_run", tfir.Raw("timestamp()")))
}

func localExec(command tfir.Value, workingDir string) tfir.Complex {
	return tfir.Complex{
		Mode:    tfir.ModeBlock,
		KeyType: "local-exec",
		Value: tfir.NewObject().
			Set("command", command).
			Set("working_dir", tfir.String(workingDir)),
	}
}

// setTuning writes the optional size and concurrency settings.
func setTuning(fn *tfir.Item, props project.LambdaProperties) {
	if props.Architecture != "" {
		fn.Set("architectures", tfir.Strings(props.Architecture))
	}
	if props.EphemeralStorage > 0 {
		fn.Set("ephemeral_storage", tfir.NewObject().Set("size", tfir.Number(props.EphemeralStorage)))
	}
	if props.ReservedConcurrency != nil {
		fn.Set("reserved_concurrent_executions", tfir.Number(*props.ReservedConcurrency))
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (b *builder) zipFunction(lp, folder, blockID string, props project.LambdaProperties, role *tfir.Item, env *tfir.Object) (*tfir.Item, []*tfir.Item) {
	goarch, _ := goArch(props.Architecture)
	workingDir := "${path.module}/blocks/" + folder
	command := fmt.Sprintf(
		"GOOS=linux GOARCH=%s CGO_ENABLED=0 go build -tags lambda.norpc -o dist/bootstrap . && mkdir -p dist/_lib && cp _lib/routing.json dist/_lib/routing.json",
		goarch)

	build := tfir.NewResource("null_resource", lp+"-build").
		Set("triggers", buildTrigger()).
		Set("provisioner", localExec(tfir.String(command), workingDir))

	archive := tfir.NewData("archive_file", lp+"-archive").
		Set("type", tfir.String("zip")).
		Set("source_dir", tfir.String(workingDir+"/dist")).
		Set("output_path", tfir.String(fmt.Sprintf("${path.module}/%s_%s.zip", b.namer.Prefix(), strings.ReplaceAll(blockID, "-", "_")))).
		Set("depends_on", tfir.List{build.Ref()})

	runtime := props.Runtime
	if runtime == "" {
		runtime = DefaultRuntime
	}
	fn := tfir.NewResource("aws_lambda_function", lp).
		Set("function_name", tfir.String(lp)).
		Set("handler", tfir.String(DefaultHandler)).
		Set("runtime", tfir.String(runtime)).
		Set("timeout", tfir.Number(orDefault(props.Timeout, DefaultTimeout))).
		Set("role", role.Ref("arn")).
		Set("memory_size", tfir.Number(orDefault(props.Memory, DefaultMemory)))
	setTuning(fn, props)
	archivePath, _ := archive.Get("output_path")
	fn.Set("filename", archivePath).
		Set("source_code_hash", archive.Ref("output_base64sha256")).
		Set("environment", tfir.Block(tfir.NewObject().Set("variables", tfir.Assign(env)))).
		Set("depends_on", tfir.List{archive.Ref()})

	return fn, []*tfir.Item{build, archive}
}

func (b *builder) imageFunction(lp, folder string, props project.LambdaProperties, role *tfir.Item, env *tfir.Object) (*tfir.Item, []*tfir.Item, error) {
	if b.network.callerIdentity == nil {
		return nil, nil, fmt.Errorf("%w: deploying a function as a container image needs the caller identity data source", ErrConfigurationPrecondition)
	}
	_, platform := goArch(props.Architecture)

	ecr := tfir.NewResource("aws_ecr_repository", lp+"-ecr").
		Set("name", tfir.String(lp+"-ecr")).
		Set("image_tag_mutability", tfir.String("MUTABLE")).
		Set("force_delete", tfir.Bool(true))

	repo := ecr.Ref("repository_url").Interp()
	account := b.network.callerIdentity.Ref("account_id").Interp()
	script := strings.Join([]string{
		fmt.Sprintf("docker build --platform %s --no-cache --provenance=false -t %s:latest .", platform, repo),
		fmt.Sprintf("aws ecr get-login-password --region %s | docker login --username AWS --password-stdin %s.dkr.ecr.%s.amazonaws.com", b.region, account, b.region),
		fmt.Sprintf("docker push %s:latest", repo),
	}, "\n")

	build := tfir.NewResource("null_resource", lp+"-build").
		Set("triggers", buildTrigger()).
		Set("provisioner", localExec(tfir.Heredoc(script), "${path.module}/blocks/"+folder)).
		Set("depends_on", tfir.List{ecr.Ref()})

	fn := tfir.NewResource("aws_lambda_function", lp).
		Set("function_name", tfir.String(lp)).
		Set("package_type", tfir.String("Image")).
		Set("image_uri", tfir.String(repo+":latest")).
		Set("image_config", tfir.NewObject().Set("command", tfir.Strings(DefaultHandler))).
		Set("timeout", tfir.Number(orDefault(props.Timeout, DefaultTimeout))).
		Set("role", role.Ref("arn")).
		Set("memory_size", tfir.Number(orDefault(props.Memory, DefaultMemory)))
	setTuning(fn, props)
	fn.Set("environment", tfir.Block(tfir.NewObject().Set("variables", tfir.Assign(env)))).
		Set("depends_on", tfir.List{build.Ref()})

	return fn, []*tfir.Item{ecr, build}, nil
}
