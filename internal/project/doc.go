// Package project defines the user-authored block graph: blocks, their
// connectors, the connections between them and the project settings.
//
// Blocks form a closed sum type. Every concrete block kind implements the
// sealed Block interface, so a type switch over Block is exhaustive over the
// kinds declared in this package and adding a kind is a compile-visible change.
package project
