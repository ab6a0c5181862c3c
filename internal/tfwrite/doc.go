// Package tfwrite renders tfir items as Terraform native syntax and checks
// that the result parses.
package tfwrite
