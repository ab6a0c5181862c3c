/*
Package compiler turns a normalized block graph into Terraform items and
per-function routing tables.

Compilation runs in two passes over the graph. The first pass walks blocks
and creates the resources each block owns: roles, functions and their build
pipelines, queues, schedule rules, and the shared HTTP and websocket
gateways (created once, on the first trigger of each protocol). The second
pass walks connections and creates the glue between already-built
resources: integrations, routes, permissions, scoped IAM policies, event
source mappings and destination environment variables.

A short post-processing step back-fills stage dependencies on routes,
injects websocket endpoint URLs into dependent functions and collects
outputs.

Compilation is synchronous and deterministic. A fatal error returns no items
at all; connections whose endpoints cannot be resolved are logged and
dropped.
*/
package compiler
