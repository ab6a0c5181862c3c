/*
Package tfir is the in-memory representation of Terraform configuration that
the compiler builds before anything is rendered to text.

An Item is one top-level block (resource, data, provider, output or the
terraform settings block). Its body is an ordered Object whose values form a
closed union:

	Null, String, Number, Bool  literals
	Raw                         a bare expression, emitted unquoted
	List, Object                collections
	Ref                         a traversal to another item, e.g. aws_iam_role.x.arn
	Complex                     a nested value with an explicit rendering mode

Object keeps insertion order so the rendered text is deterministic.
*/
package tfir
