package deploy

import (
	"fmt"

	"github.com/specialistvlad/blockgrid/internal/compiler"
	"github.com/specialistvlad/blockgrid/internal/project"
)

const dockerfileTemplate = `FROM golang:1.24 AS build
WORKDIR /src
COPY . .
RUN CGO_ENABLED=0 GOOS=linux GOARCH=%[1]s go build -tags lambda.norpc -o /out/bootstrap .

FROM public.ecr.aws/lambda/provided:al2023
COPY --from=build /out/bootstrap ${LAMBDA_RUNTIME_DIR}/bootstrap
COPY _lib/routing.json ${LAMBDA_TASK_ROOT}/_lib/routing.json
CMD ["%[2]s"]
`

// Dockerfile renders the default container build for a function.
func Dockerfile(fn *project.Function) string {
	arch := "amd64"
	if fn.LambdaOrZero().Architecture == "arm64" {
		arch = "arm64"
	}
	return fmt.Sprintf(dockerfileTemplate, arch, compiler.DefaultHandler)
}

// ensureDockerfile keeps an authored Dockerfile and writes the default one
// otherwise.
func (g *Generator) ensureDockerfile(blockDir string, fn *project.Function) error {
	path := g.Store.Join(blockDir, "Dockerfile")
	ok, err := g.Store.Exists(path)
	if err != nil || ok {
		return err
	}
	return g.Store.WriteFile(path, []byte(Dockerfile(fn)))
}
