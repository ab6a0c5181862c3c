package compiler

import (
	"github.com/specialistvlad/blockgrid/internal/naming"
	"github.com/specialistvlad/blockgrid/internal/project"
	"github.com/specialistvlad/blockgrid/router/routing"
)

var webSocketRouteKeys = []string{"$connect", "$disconnect", "$default"}

// BuildRoutingTable derives the routing contract of fn from a normalized
// project. Connections with a missing endpoint block are ignored.
func BuildRoutingTable(p *project.Project, fn *project.Function, n naming.Namer) *routing.Table {
	t := routing.New()
	index := project.Index(p.Blocks)

	for _, c := range p.Connections {
		if c.ToBlockID != fn.ID {
			continue
		}
		switch src := index[c.FromBlockID].(type) {
		case *project.Function:
			t.Inputs[c.FromConnectorID] = c.ToConnectorID
		case *project.APITrigger:
			t.Inputs[src.Properties.Path] = c.ToConnectorID
			if src.Properties.IsSynchronous {
				t.InputSynchronous[c.ToConnectorID] = true
			}
		case *project.ScheduleTrigger:
			t.Inputs[ScheduleRuleName(n, src.ID)] = c.ToConnectorID
		case *project.WSTrigger:
			for _, key := range webSocketRouteKeys {
				t.Inputs[key] = c.ToConnectorID
			}
		case *project.Queue:
			// queue messages carry the producing function's output connector
			for _, in := range p.Connections {
				if in.ToBlockID != src.ID {
					continue
				}
				if _, ok := index[in.FromBlockID].(*project.Function); ok {
					t.Inputs[in.FromConnectorID] = c.ToConnectorID
				}
			}
		}
	}

	for _, c := range p.Connections {
		if c.FromBlockID != fn.ID {
			continue
		}
		target, ok := index[c.ToBlockID]
		if !ok {
			continue
		}
		kind := routing.OutputKind(target.Kind())
		if c.IsQueue() {
			kind = routing.KindQueue
		}
		t.OutputKinds[c.FromConnectorID] = kind
		if _, ok := t.OutputKinds[routing.DefaultKey]; !ok {
			t.OutputKinds[routing.DefaultKey] = kind
		}
		switch kind {
		case routing.KindResponse:
			t.OutputResponse[c.FromConnectorID] = true
		case routing.KindFunction, routing.KindQueue:
			t.Destinations[c.FromConnectorID] = naming.EnvVar(c.FromConnectorID)
		}
	}

	for _, out := range fn.Outputs {
		t.OutputNames[naming.PascalCase(out.Name)] = out.ID
		if _, ok := t.OutputNames[routing.DefaultKey]; !ok {
			t.OutputNames[routing.DefaultKey] = out.ID
		}
	}
	return t
}
