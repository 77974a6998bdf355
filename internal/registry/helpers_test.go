package registry_test

import (
	"github.com/vreconcile/operators/pkg/object"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

func unstructuredSet(obj object.Object, value any, fields ...string) error {
	return unstructured.SetNestedField(obj.Object, value, fields...)
}
