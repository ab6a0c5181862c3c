// Package deploy writes a project's deployable output: the Terraform file,
// the copied block sources and one routing table per function. It also
// generates the development library files used while editing blocks.
package deploy
