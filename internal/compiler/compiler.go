package compiler

import (
	"context"
	"fmt"

	"github.com/specialistvlad/blockgrid/internal/ctxlog"
	"github.com/specialistvlad/blockgrid/internal/flowgraph"
	"github.com/specialistvlad/blockgrid/internal/naming"
	"github.com/specialistvlad/blockgrid/internal/normalize"
	"github.com/specialistvlad/blockgrid/internal/project"
	"github.com/specialistvlad/blockgrid/internal/tfir"
	"github.com/specialistvlad/blockgrid/router/routing"
)

// PropertySource supplies per-block property overrides.
type PropertySource interface {
	BlockProperties(fn *project.Function) (map[string]any, error)
}

// Options configure a compilation.
type Options struct {
	Region string
	// Env is injected into every function's environment.
	Env map[string]string
	// Properties is optional; without it functions get no overrides.
	Properties PropertySource
}

// Result is the output of a successful compilation.
type Result struct {
	// Project is the normalized graph the items were built from.
	Project *project.Project
	Items   []*tfir.Item
	// Functions lists the deployed function blocks in graph order.
	Functions []*project.Function
	// Routing holds one table per deployed function, keyed by block id.
	Routing map[string]*routing.Table
}

type builder struct {
	namer   naming.Namer
	region  string
	env     map[string]string
	network *network
	index   map[string]project.Block
	graph   *flowgraph.Graph

	blockItems []*tfir.Item
	connItems  []*tfir.Item

	basicDoc  *tfir.Item
	wsPolicy  *tfir.Item
	http      *gateway
	ws        *gateway
	lambdas   map[string]*lambda
	queues    map[string]*tfir.Item
	schedules map[string]*tfir.Item

	routes    []*tfir.Item
	wsTarget  string // function owning the websocket route keys
	wsGranted map[string]bool
	granted   map[string]bool
}

// Compile normalizes the project and builds its infrastructure items and
// routing tables. Any returned error leaves no partial result.
func Compile(ctx context.Context, p *project.Project, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	normalized := normalize.Project(ctx, p)
	namer := naming.New(p.Settings.ID, p.Settings.Name)
	logger.Debug("Compiling project.", "prefix", namer.Prefix(), "blocks", len(normalized.Blocks), "connections", len(normalized.Connections))

	net, err := buildNetwork(namer, p.Settings.IncludeVPC, p.Settings.IncludeFixedIP)
	if err != nil {
		return nil, err
	}

	b := &builder{
		namer:     namer,
		region:    opts.Region,
		env:       opts.Env,
		network:   net,
		index:     project.Index(normalized.Blocks),
		graph:     buildGraph(normalized),
		lambdas:   map[string]*lambda{},
		queues:    map[string]*tfir.Item{},
		schedules: map[string]*tfir.Item{},
		wsGranted: map[string]bool{},
		granted:   map[string]bool{},
	}

	var functions []*project.Function
	for _, block := range normalized.Blocks {
		if err := b.compileBlock(ctx, block); err != nil {
			return nil, err
		}
		if fn, ok := block.(*project.Function); ok && b.lambdas[fn.ID] != nil {
			functions = append(functions, fn)
		}
	}

	for _, c := range normalized.Connections {
		if err := b.compileConnection(ctx, c); err != nil {
			return nil, err
		}
	}

	b.linkStageRoutes()
	if err := b.injectWebSocketURLs(normalized.Blocks); err != nil {
		return nil, err
	}

	items := setupItems(opts.Region, p.Settings.Name)
	items = append(items, net.items()...)
	items = append(items, b.blockItems...)
	items = append(items, b.connItems...)
	items = append(items, b.outputs()...)

	tables := make(map[string]*routing.Table, len(functions))
	for _, fn := range functions {
		t := BuildRoutingTable(normalized, fn, namer)
		if opts.Properties != nil {
			props, err := opts.Properties.BlockProperties(fn)
			if err != nil {
				return nil, fmt.Errorf("function %q: %w", fn.ID, err)
			}
			for k, v := range props {
				t.Properties[k] = v
			}
		}
		tables[fn.ID] = t
	}

	logger.Info("Project compiled.", "items", len(items), "functions", len(functions))
	return &Result{Project: normalized, Items: items, Functions: functions, Routing: tables}, nil
}

func buildGraph(p *project.Project) *flowgraph.Graph {
	g := flowgraph.New()
	for _, b := range p.Blocks {
		g.AddNode(b.Common().ID)
	}
	for _, c := range p.Connections {
		// unresolved endpoints are reported by the connection pass
		_ = g.AddEdge(c.FromBlockID, c.ToBlockID)
	}
	return g
}

// compileBlock is pass one.
func (b *builder) compileBlock(ctx context.Context, block project.Block) error {
	logger := ctxlog.FromContext(ctx)

	switch blk := block.(type) {
	case *project.Function:
		if !blk.Deployable() {
			logger.Debug("Skipping function.", "block", blk.ID, "status", blk.Status, "skip_deploy", blk.Properties.SkipDeploy, "inputs", len(blk.Inputs))
			return nil
		}
		if b.basicDoc == nil {
			b.basicDoc = basicAssumeRoleDocument(b.namer)
			b.blockItems = append(b.blockItems, b.basicDoc)
		}
		l, items, err := b.buildLambda(blk)
		if err != nil {
			return err
		}
		b.lambdas[blk.ID] = l
		b.blockItems = append(b.blockItems, items...)
	case *project.Queue:
		q := queueResource(b.namer, blk)
		b.queues[blk.ID] = q
		b.blockItems = append(b.blockItems, q)
	case *project.APITrigger:
		if b.http == nil {
			b.http = httpGateway(b.namer)
			b.blockItems = append(b.blockItems, b.http.api, b.http.stage)
		}
	case *project.WSTrigger:
		if b.ws == nil {
			b.ws = wsGateway(b.namer)
			if b.network.callerIdentity != nil {
				doc, policy := manageConnectionsPolicy(b.ws, b.region, b.network.callerIdentity)
				b.wsPolicy = policy
				b.blockItems = append(b.blockItems, doc, policy)
			}
			b.blockItems = append(b.blockItems, b.ws.api, b.ws.stage)
		}
	case *project.ScheduleTrigger:
		s := scheduleResource(b.namer, blk)
		b.schedules[blk.ID] = s
		b.blockItems = append(b.blockItems, s)
	case *project.Response, *project.Note:
		// nothing to deploy
	default:
		return fmt.Errorf("unhandled block kind %q", block.Kind())
	}
	return nil
}

// resolve looks up both endpoints including their connectors.
func (b *builder) resolve(c project.Connection) (project.Block, project.Block, bool) {
	source, ok := b.index[c.FromBlockID]
	if !ok || !source.Common().HasOutput(c.FromConnectorID) {
		return nil, nil, false
	}
	target, ok := b.index[c.ToBlockID]
	if !ok || !target.Common().HasInput(c.ToConnectorID) {
		return nil, nil, false
	}
	return source, target, true
}

// compileConnection is pass two.
func (b *builder) compileConnection(ctx context.Context, c project.Connection) error {
	logger := ctxlog.FromContext(ctx)

	source, target, ok := b.resolve(c)
	if !ok {
		logger.Warn("Dropping connection with unresolved endpoint.", "connection", c.ID, "from", c.FromBlockID, "to", c.ToBlockID)
		return nil
	}

	switch src := source.(type) {
	case *project.APITrigger:
		if fn, ok := b.lambdaFor(target); ok {
			b.linkAPI(src, fn)
		}
	case *project.ScheduleTrigger:
		if fn, ok := b.lambdaFor(target); ok {
			b.linkSchedule(b.schedules[src.ID], fn)
		}
	case *project.WSTrigger:
		fn, ok := b.lambdaFor(target)
		if !ok {
			return nil
		}
		if err := b.linkWebSocket(ctx, fn); err != nil {
			return err
		}
		return b.grantWebSocketResponders(fn.block.ID)
	case *project.Function:
		from, ok := b.lambdas[src.ID]
		if !ok {
			return nil
		}
		switch dst := target.(type) {
		case *project.Function:
			if to, ok := b.lambdas[dst.ID]; ok {
				b.linkFunctionToFunction(from, to, c)
			}
		case *project.Queue:
			b.linkFunctionToQueue(from, b.queues[dst.ID], c)
		}
	case *project.Queue:
		if fn, ok := b.lambdaFor(target); ok {
			b.linkQueueToFunction(b.queues[src.ID], fn, c)
		}
	}
	return nil
}

// lambdaFor returns the deployed function behind a target block.
func (b *builder) lambdaFor(target project.Block) (*lambda, bool) {
	fn, ok := target.(*project.Function)
	if !ok {
		return nil, false
	}
	l, ok := b.lambdas[fn.ID]
	return l, ok
}

func (b *builder) emit(items ...*tfir.Item) {
	b.connItems = append(b.connItems, items...)
}

// once reports whether key is new, remembering it.
func (b *builder) once(key string) bool {
	if b.granted[key] {
		return false
	}
	b.granted[key] = true
	return true
}

func (b *builder) linkAPI(api *project.APITrigger, l *lambda) {
	base := fmt.Sprintf("%s%s%s_to_%s", b.namer.Prefix(), httpRouteMarker,
		naming.SanitizeBlockID(api.ID), naming.BlockName(string(project.KindFunction), l.block.ID))
	if !b.once(base) {
		return
	}

	integration := tfir.NewResource("aws_apigatewayv2_integration", base).
		Set("api_id", b.http.api.Ref("id")).
		Set("integration_type", tfir.String("AWS_PROXY")).
		Set("integration_uri", l.fn.Ref("invoke_arn")).
		Set("integration_method", tfir.String("POST")).
		Set("payload_format_version", tfir.String("2.0"))
	route := tfir.NewResource("aws_apigatewayv2_route", base+"-route").
		Set("api_id", b.http.api.Ref("id")).
		Set("route_key", tfir.String(api.MethodOrDefault()+" "+api.Properties.Path)).
		Set("target", tfir.String("integrations/"+integration.Ref("id").Interp()))
	permission := invokePermission(base+"-permission", base, l, "apigateway.amazonaws.com",
		tfir.String(b.http.api.Ref("execution_arn").Interp()+"/*/*"))

	b.routes = append(b.routes, route)
	b.emit(integration, route, permission)
}

func invokePermission(name, statementID string, l *lambda, principal string, sourceARN tfir.Value) *tfir.Item {
	return tfir.NewResource("aws_lambda_permission", name).
		Set("statement_id", tfir.String(naming.StatementID(tfir.Label(statementID)))).
		Set("action", tfir.String("lambda:InvokeFunction")).
		Set("function_name", l.fn.Ref("function_name")).
		Set("principal", tfir.String(principal)).
		Set("source_arn", sourceARN)
}

func (b *builder) linkSchedule(rule *tfir.Item, l *lambda) {
	name := rule.Name + "_to_" + l.fn.Name
	if !b.once(name) {
		return
	}
	target := tfir.NewResource("aws_cloudwatch_event_target", name).
		Set("rule", rule.Ref("name")).
		Set("arn", l.fn.Ref("arn"))
	b.emit(target, invokePermission(name, name, l, "events.amazonaws.com", rule.Ref("arn")))
}

// linkWebSocket binds $connect, $disconnect and $default of the shared
// websocket API to l. Route keys are unique per API, so only the first
// linked function gets them; later ones are skipped with a warning.
func (b *builder) linkWebSocket(ctx context.Context, l *lambda) error {
	if b.wsPolicy == nil {
		return fmt.Errorf("%w: websocket trigger needs the manage-connections policy", ErrConfigurationPrecondition)
	}
	switch b.wsTarget {
	case l.block.ID:
		return nil
	case "":
		b.wsTarget = l.block.ID
	default:
		ctxlog.FromContext(ctx).Warn("Websocket routes already target another function, skipping.",
			"function", l.block.ID, "routes_target", b.wsTarget)
		return nil
	}

	base := fmt.Sprintf("%s%sto_%s", b.namer.Prefix(), wsRouteMarker, naming.BlockName(string(project.KindFunction), l.block.ID))
	integration := tfir.NewResource("aws_apigatewayv2_integration", base).
		Set("api_id", b.ws.api.Ref("id")).
		Set("integration_type", tfir.String("AWS_PROXY")).
		Set("integration_uri", l.fn.Ref("invoke_arn"))
	b.emit(integration)

	for _, rk := range []struct{ suffix, key string }{
		{"connect", "$connect"},
		{"disconnect", "$disconnect"},
		{"default", "$default"},
	} {
		route := tfir.NewResource("aws_apigatewayv2_route", base+"-"+rk.suffix).
			Set("api_id", b.ws.api.Ref("id")).
			Set("route_key", tfir.String(rk.key)).
			Set("target", tfir.String("integrations/"+integration.Ref("id").Interp()))
		b.routes = append(b.routes, route)
		b.emit(route)
	}

	b.emit(invokePermission(base+"-permission", base, l, "apigateway.amazonaws.com",
		tfir.String(b.ws.api.Ref("execution_arn").Interp()+"/*/*")))
	return nil
}

// grantWebSocketResponders walks function-to-function edges from start and
// lets every deployed function that feeds a response block post back to
// websocket connections.
func (b *builder) grantWebSocketResponders(start string) error {
	isFunction := func(id string) bool {
		_, ok := b.index[id].(*project.Function)
		return ok
	}
	for _, id := range b.graph.Walk(start, isFunction) {
		succs, err := b.graph.Successors(id)
		if err != nil {
			return err
		}
		reachesResponse := false
		for _, s := range succs {
			if _, ok := b.index[s].(*project.Response); ok {
				reachesResponse = true
				break
			}
		}
		l, deployed := b.lambdas[id]
		if !reachesResponse || !deployed || b.wsGranted[id] {
			continue
		}
		if b.wsPolicy == nil {
			return fmt.Errorf("%w: responding over websocket needs the manage-connections policy", ErrConfigurationPrecondition)
		}
		b.wsGranted[id] = true
		b.emit(tfir.NewResource("aws_iam_role_policy_attachment", l.fn.Name+"-ws-role").
			Set("role", l.role.Ref("name")).
			Set("policy_arn", b.wsPolicy.Ref("arn")))
	}
	return nil
}

func policyDocument(actions []string, resource tfir.Value) tfir.Complex {
	return tfir.JSONEncode(tfir.NewObject().
		Set("Version", tfir.String("2012-10-17")).
		Set("Statement", tfir.List{tfir.NewObject().
			Set("Effect", tfir.String("Allow")).
			Set("Action", tfir.Strings(actions...)).
			Set("Resource", resource)}))
}

func scopedPolicy(policyName, attachmentName string, role *tfir.Item, doc tfir.Complex) []*tfir.Item {
	policy := tfir.NewResource("aws_iam_policy", policyName).
		Set("name", tfir.String(policyName)).
		Set("policy", doc)
	attachment := tfir.NewResource("aws_iam_role_policy_attachment", attachmentName).
		Set("role", role.Ref("name")).
		Set("policy_arn", policy.Ref("arn"))
	return []*tfir.Item{policy, attachment}
}

func (b *builder) linkFunctionToFunction(from, to *lambda, c project.Connection) {
	from.setEnv(naming.EnvVar(c.FromConnectorID), to.fn.Ref("function_name"))

	base := from.fn.Name + "_to_" + to.fn.Name
	if !b.once(base) {
		return
	}
	doc := policyDocument([]string{"lambda:InvokeFunction", "lambda:InvokeAsync"}, tfir.String(to.fn.Ref("arn").Interp()))
	b.emit(scopedPolicy(base+"_policy", base+"_policy_attachment", from.role, doc)...)
}

func (b *builder) linkFunctionToQueue(from *lambda, queue *tfir.Item, c project.Connection) {
	from.setEnv(naming.EnvVar(c.FromConnectorID), queue.Ref("id"))

	name := from.fn.Name + "_to_" + queue.Name
	if !b.once(name) {
		return
	}
	doc := policyDocument([]string{"sqs:SendMessage", "sqs:GetQueueUrl", "sqs:GetQueueAttributes"}, queue.Ref("arn"))
	b.emit(scopedPolicy(name, name, from.role, doc)...)
}

func (b *builder) linkQueueToFunction(queue *tfir.Item, to *lambda, c project.Connection) {
	name := queue.Name + "_to_" + to.fn.Name
	if !b.once(name) {
		return
	}
	mapping := tfir.NewResource("aws_lambda_event_source_mapping", name).
		Set("event_source_arn", queue.Ref("arn")).
		Set("function_name", to.fn.Ref("function_name")).
		Set("batch_size", tfir.Number(orDefault(c.BatchSize(), 1))).
		Set("enabled", tfir.Bool(true))
	doc := policyDocument([]string{"sqs:ReceiveMessage", "sqs:DeleteMessage", "sqs:GetQueueAttributes", "sqs:ChangeMessageVisibility"}, queue.Ref("arn"))
	b.emit(mapping)
	b.emit(scopedPolicy(name, name, to.role, doc)...)
}
