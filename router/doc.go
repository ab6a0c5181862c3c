// Package router is the runtime half of blockgrid. Every deployed function
// embeds a Router: it turns the incoming trigger event into one or more
// inputs, runs the block body for each, and routes whatever the body sends
// to response buffers, websocket connections, other functions or queues,
// following the function's routing table.
//
// The router talks to the platform only through the Invoker, QueueSender and
// ConnectionPoster interfaces; package awsrouter provides the AWS versions.
package router
