package tfir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestItemRef(t *testing.T) {
	role := NewResource("aws_iam_role", "abcd-shop-role")
	azs := NewData("aws_availability_zones", "available")

	assert.Equal(t, "aws_iam_role.abcd-shop-role", role.Ref().Path())
	assert.Equal(t, "${aws_iam_role.abcd-shop-role.arn}", role.Ref("arn").Interp())
	assert.Equal(t, "data.aws_availability_zones.available.names[1]", azs.Ref("names[1]").Path())
	assert.Equal(t, role.Ref("arn"), role.Ref("arn"))
	assert.NotEqual(t, role.Ref("arn"), role.Ref("id"))
}

func TestNewResource_SanitizesName(t *testing.T) {
	it := NewResource("aws_sqs_queue", "9f3e-shop-queue")
	assert.Equal(t, "_9f3e-shop-queue", it.Name)
}

func TestObject_KeepsOrder(t *testing.T) {
	o := NewObject().Set("b", Number(1)).Set("a", Number(2)).Set("b", Number(3))
	assert.Equal(t, []string{"b", "a"}, o.Keys())
	v, ok := o.Get("b")
	require.True(t, ok)
	assert.Equal(t, Number(3), v)
	assert.Len(t, o.Keys(), 2)
}

func TestFrom(t *testing.T) {
	v, err := From(map[string]any{
		"z":    "&var.x",
		"a":    []any{1, true, nil},
		"name": "plain",
	})
	require.NoError(t, err)

	obj, ok := v.(*Object)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "name", "z"}, obj.Keys())

	z, _ := obj.Get("z")
	assert.Equal(t, Raw("var.x"), z)
	a, _ := obj.Get("a")
	assert.Equal(t, List{Number(1), Bool(true), Null{}}, a)

	_, err = From(struct{}{})
	assert.Error(t, err)
}

func TestFrom_Cty(t *testing.T) {
	v, err := From(cty.ObjectVal(map[string]cty.Value{
		"port":  cty.NumberIntVal(8080),
		"ratio": cty.NumberFloatVal(0.5),
		"tags":  cty.ListVal([]cty.Value{cty.StringVal("a")}),
	}))
	require.NoError(t, err)

	obj := v.(*Object)
	port, _ := obj.Get("port")
	ratio, _ := obj.Get("ratio")
	tags, _ := obj.Get("tags")
	assert.Equal(t, Number(8080), port)
	assert.Equal(t, Number(0.5), ratio)
	assert.Equal(t, List{String("a")}, tags)

	_, err = From(cty.UnknownVal(cty.String))
	assert.Error(t, err)
}
