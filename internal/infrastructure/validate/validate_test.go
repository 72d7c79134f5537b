package validate

import (
	"strings"
	"testing"
)

func TestCompose(t *testing.T) {
	check := Compose(Required(), LengthBetween(3, 8))

	tests := []struct {
		value   string
		wantErr bool
	}{
		{"hearth", false},
		{"", true},
		{"ab", true},
		{"much too long", true},
	}

	for _, tt := range tests {
		err := check(tt.value)
		if (err != nil) != tt.wantErr {
			t.Fatalf("value %q: err = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestFieldPrefixesName(t *testing.T) {
	check := Field("topic", Required())

	err := check("")
	if err == nil {
		t.Fatal("empty value accepted")
	}
	if !strings.HasPrefix(err.Error(), "topic:") {
		t.Fatalf("error %q not labeled with field name", err)
	}
}

func TestOneOf(t *testing.T) {
	check := OneOf("ember", "indigo", "moss")

	if err := check("ember"); err != nil {
		t.Fatalf("allowed value rejected: %v", err)
	}
	if err := check("neon"); err == nil {
		t.Fatal("unknown value accepted")
	}
}
