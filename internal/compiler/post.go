package compiler

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/blockgrid/internal/project"
	"github.com/specialistvlad/blockgrid/internal/tfir"
)

// linkStageRoutes makes each stage wait for the routes of its gateway, so
// auto-deploy never publishes an empty API.
func (b *builder) linkStageRoutes() {
	for _, g := range []*gateway{b.http, b.ws} {
		if g == nil {
			continue
		}
		var deps tfir.List
		for _, r := range b.routes {
			if strings.Contains(r.Name, g.marker) {
				deps = append(deps, r.Ref())
			}
		}
		if len(deps) > 0 {
			g.stage.Set("depends_on", deps)
		}
	}
}

// injectWebSocketURLs binds the websocket URL into every function that
// declares a dependency on a websocket trigger. Excluded functions are
// checked too, so a broken binding is never silently ignored.
func (b *builder) injectWebSocketURLs(blocks []project.Block) error {
	for _, block := range blocks {
		fn, ok := block.(*project.Function)
		if !ok {
			continue
		}
		for _, dep := range fn.Properties.DependsOn {
			ws, ok := b.index[dep].(*project.WSTrigger)
			if !ok {
				continue
			}
			l, deployed := b.lambdas[fn.ID]
			if !deployed || b.ws == nil {
				return fmt.Errorf("%w: function %q depends on websocket %q but is not deployed", ErrEnvironmentBinding, fn.ID, ws.ID)
			}
			l.setEnv(ws.EnvName(), tfir.String(b.ws.url()))
		}
	}
	return nil
}

func (b *builder) outputs() []*tfir.Item {
	var out []*tfir.Item
	if b.network.vpc != nil {
		out = append(out, tfir.NewOutput("project_vpc_id", b.network.vpc.Ref("id")))
	}
	if b.network.natEIP != nil {
		out = append(out, tfir.NewOutput("project_fixed_ip", b.network.natEIP.Ref("public_ip")))
	}
	if b.http != nil {
		out = append(out, tfir.NewOutput("api_gateway_url", tfir.String(b.http.url())))
	}
	if b.ws != nil {
		out = append(out, tfir.NewOutput("ws_wss_url", tfir.String(b.ws.url())))
	}
	return out
}
