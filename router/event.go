package router

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/specialistvlad/blockgrid/router/routing"
)

// webSocketRouteKeys are the route keys of websocket-originated events.
var webSocketRouteKeys = map[string]bool{"$connect": true, "$disconnect": true, "$default": true}

// WebSocket identifies a live websocket connection.
type WebSocket struct {
	ConnectionID string `json:"connectionId"`
	DomainName   string `json:"domainName"`
	Stage        string `json:"stage"`
	RouteKey     string `json:"routeKey"`
}

// Endpoint is the management API endpoint for posting to the connection.
func (w *WebSocket) Endpoint() string {
	return "https://" + w.DomainName + "/" + w.Stage
}

func (w *WebSocket) isRoute() bool {
	return w != nil && webSocketRouteKeys[w.RouteKey]
}

// Context carries trigger details alongside an input.
type Context struct {
	Headers     map[string]string
	Query       map[string]string
	RawBody     string
	Synchronous bool
	WebSocket   *WebSocket
}

// Input is one unit of work for the block body.
type Input struct {
	// From is the receiving input connector id.
	From    string
	Payload any
	Ctx     Context
	// Properties are the block's authored overrides from the routing table.
	// Bodies must treat the map as read-only.
	Properties map[string]any
}

// Envelope is the message exchanged between functions, directly or through a
// queue. To is the sender's output connector id.
type Envelope struct {
	Payload       any        `json:"payload"`
	To            string     `json:"to"`
	StatusCode    int        `json:"statusCode,omitempty"`
	Synchronous   bool       `json:"synchronous"`
	FromWebSocket *WebSocket `json:"fromWebSocket,omitempty"`
}

// Inputs normalizes a raw trigger event into inputs. Gateway events,
// queue batches, scheduled events and direct envelopes are recognized by
// their top-level keys.
func Inputs(t *routing.Table, raw json.RawMessage) ([]Input, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("event is not a JSON object: %w", err)
	}

	switch {
	case keys["requestContext"] != nil:
		var ev events.APIGatewayWebsocketProxyRequest
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode gateway event: %w", err)
		}
		in, err := gatewayInput(t, ev)
		if err != nil {
			return nil, err
		}
		return []Input{in}, nil

	case keys["Records"] != nil:
		var ev events.SQSEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode queue event: %w", err)
		}
		inputs := make([]Input, 0, len(ev.Records))
		for _, rec := range ev.Records {
			var env Envelope
			if err := json.Unmarshal([]byte(rec.Body), &env); err != nil {
				return nil, fmt.Errorf("queue message %s: %w", rec.MessageId, err)
			}
			inputs = append(inputs, Input{From: t.ResolveInput(env.To), Payload: env.Payload})
		}
		return inputs, nil

	case keys["detail-type"] != nil:
		var ev events.CloudWatchEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to decode scheduled event: %w", err)
		}
		return []Input{{From: t.ResolveInput(ruleName(ev.Resources))}}, nil
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	return []Input{{
		From:    t.ResolveInput(env.To),
		Payload: env.Payload,
		Ctx:     Context{Synchronous: env.Synchronous, WebSocket: env.FromWebSocket},
	}}, nil
}

// ruleName takes the rule name out of `arn:...:rule/<name>`.
func ruleName(resources []string) string {
	if len(resources) == 0 {
		return ""
	}
	parts := strings.Split(resources[0], "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func gatewayInput(t *routing.Table, ev events.APIGatewayWebsocketProxyRequest) (Input, error) {
	from := t.ResolveInput(gatewayPath(ev))
	body := ev.Body
	if ev.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return Input{}, fmt.Errorf("failed to decode request body: %w", err)
		}
		body = string(decoded)
	}

	payload, err := gatewayPayload(ev.Headers, body, ev.QueryStringParameters)
	if err != nil {
		return Input{}, err
	}

	query := ev.QueryStringParameters
	if query == nil {
		query = map[string]string{}
	}
	in := Input{
		From:    from,
		Payload: payload,
		Ctx: Context{
			Headers:     ev.Headers,
			Query:       query,
			RawBody:     ev.Body,
			Synchronous: t.InputSynchronous[from],
		},
	}
	if rc := ev.RequestContext; rc.ConnectionID != "" {
		in.Ctx.WebSocket = &WebSocket{
			ConnectionID: rc.ConnectionID,
			DomainName:   rc.DomainName,
			Stage:        rc.Stage,
			RouteKey:     rc.RouteKey,
		}
	}
	return in, nil
}

var httpMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS", "HEAD", "ANY"}

// gatewayPath is the route key without its method, or the request path
// without a stage segment.
func gatewayPath(ev events.APIGatewayWebsocketProxyRequest) string {
	if rk := ev.RequestContext.RouteKey; rk != "" {
		for _, m := range httpMethods {
			if rest, ok := strings.CutPrefix(rk, m+" "); ok {
				return rest
			}
		}
		return rk
	}
	p := strings.Replace(ev.Path, "/dev", "", 1)
	return strings.Replace(p, "/prod", "", 1)
}

// gatewayPayload parses a JSON body when the content type says so and
// merges query parameters over object payloads. Without a body the payload
// is the query object.
func gatewayPayload(headers map[string]string, body string, query map[string]string) (any, error) {
	var payload any = map[string]any{}
	if body != "" {
		if strings.Contains(header(headers, "content-type"), "application/json") {
			if err := json.Unmarshal([]byte(body), &payload); err != nil {
				return nil, fmt.Errorf("failed to parse JSON body: %w", err)
			}
		} else {
			payload = body
		}
	}
	if len(query) == 0 {
		return payload, nil
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return payload, nil
	}
	for k, v := range query {
		obj[k] = v
	}
	return obj, nil
}

func header(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
