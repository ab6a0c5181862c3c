package compiler

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/blockgrid/internal/naming"
	"github.com/specialistvlad/blockgrid/internal/project"
	"github.com/specialistvlad/blockgrid/internal/tfir"
)

// Route name markers used to group routes by gateway.
const (
	httpRouteMarker = "_api_gateway_"
	wsRouteMarker   = "_ws_gateway_"
)

// gateway is one shared API with its single stage.
type gateway struct {
	api    *tfir.Item
	stage  *tfir.Item
	marker string
}

// url is the invoke URL, `<endpoint>/<stage>`.
func (g *gateway) url() string {
	return g.api.Ref("api_endpoint").Interp() + "/" + g.stage.Ref("name").Interp()
}

func newGateway(name, marker string) *gateway {
	api := tfir.NewResource("aws_apigatewayv2_api", name).
		Set("name", tfir.String(name))
	stage := tfir.NewResource("aws_apigatewayv2_stage", name+"-stage").
		Set("api_id", api.Ref("id")).
		Set("name", tfir.String("prod")).
		Set("auto_deploy", tfir.Bool(true))
	return &gateway{api: api, stage: stage, marker: marker}
}

func httpGateway(names naming.Namer) *gateway {
	g := newGateway(names.Scoped("http"), httpRouteMarker)
	g.api.Set("protocol_type", tfir.String("HTTP")).
		Set("cors_configuration", tfir.NewObject().
			Set("allow_origins", tfir.Strings("*")).
			Set("allow_methods", tfir.Strings("*")).
			Set("allow_headers", tfir.Strings("*")).
			Set("expose_headers", tfir.Strings("*")))
	return g
}

func wsGateway(names naming.Namer) *gateway {
	g := newGateway(names.Scoped("ws"), wsRouteMarker)
	g.api.Set("protocol_type", tfir.String("WEBSOCKET")).
		Set("route_selection_expression", tfir.String("$request.body.action"))
	return g
}

// manageConnectionsPolicy lets functions post back to websocket clients.
func manageConnectionsPolicy(ws *gateway, region string, callerIdentity *tfir.Item) (doc, policy *tfir.Item) {
	resource := fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/%s/*/@connections/*",
		region,
		callerIdentity.Ref("account_id").Interp(),
		ws.api.Ref("id").Interp(),
		ws.stage.Ref("name").Interp())

	doc = tfir.NewData("aws_iam_policy_document", ws.api.Name+"-manage-connections-doc").
		Set("statement", tfir.NewObject().
			Set("sid", tfir.String("ManageConnections")).
			Set("actions", tfir.Strings("execute-api:ManageConnections")).
			Set("resources", tfir.Strings(resource)))
	policy = rolePolicy(doc)
	return doc, policy
}

// rolePolicy wraps a policy document in a standalone IAM policy.
func rolePolicy(doc *tfir.Item) *tfir.Item {
	name := doc.Name + "-policy"
	return tfir.NewResource("aws_iam_policy", name).
		Set("name", tfir.String(name)).
		Set("policy", doc.Ref("json"))
}

func queueResource(n naming.Namer, q *project.Queue) *tfir.Item {
	name := n.Block(string(project.KindQueue), q.ID)
	if q.Properties.Fifo {
		name += ".fifo"
	}
	return tfir.NewResource("aws_sqs_queue", strings.TrimSuffix(name, ".fifo")).
		Set("name", tfir.String(name)).
		Set("fifo_queue", tfir.Bool(q.Properties.Fifo)).
		Set("visibility_timeout_seconds", tfir.Number(q.Properties.VisibilityTimeout)).
		Set("message_retention_seconds", tfir.Number(q.Properties.MessageRetentionPeriod)).
		Set("delay_seconds", tfir.Number(q.Properties.DelaySeconds))
}

// scheduleExpression wraps a bare cron body; full cron() and rate()
// expressions pass through.
func scheduleExpression(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "cron(") || strings.HasPrefix(s, "rate(") {
		return s
	}
	return "cron(" + s + ")"
}

// ScheduleRuleName is the event rule name of a schedule trigger. Scheduled
// events carry it and the router resolves it through the input table.
func ScheduleRuleName(n naming.Namer, blockID string) string {
	return n.Block(string(project.KindScheduleTrigger), blockID)
}

func scheduleResource(n naming.Namer, s *project.ScheduleTrigger) *tfir.Item {
	name := ScheduleRuleName(n, s.ID)
	it := tfir.NewResource("aws_cloudwatch_event_rule", name).
		Set("name", tfir.String(name)).
		Set("schedule_expression", tfir.String(scheduleExpression(s.Properties.Schedule)))
	if !s.IsEnabled() {
		it.Set("state", tfir.String("DISABLED"))
	}
	return it
}
