package model_test

import (
	"errors"
	"fmt"
	"testing"

	"go-newsletter-exporter/internal/model"
)

func TestParseTimeFlexible(t *testing.T) {
	cases := []string{
		"2024-02-10T08:00:00Z",
		"Mon, 02 Jan 2006 15:04:05 GMT",
		"Mon, 02 Jan 2006 15:04:05 -0700",
	}
	for _, in := range cases {
		if _, ok := model.ParseTimeFlexible(in); !ok {
			t.Fatalf("failed to parse %q", in)
		}
	}
	if _, ok := model.ParseTimeFlexible("yesterday"); ok {
		t.Fatalf("nonsense should not parse")
	}
}

func TestConfigError(t *testing.T) {
	err := model.NewConfigError("bad value: %d", 42)
	if !model.IsConfigError(err) {
		t.Fatalf("not recognized: %v", err)
	}
	wrapped := fmt.Errorf("context: %w", err)
	if !model.IsConfigError(wrapped) {
		t.Fatalf("wrapped not recognized: %v", wrapped)
	}
	if model.IsConfigError(errors.New("other")) {
		t.Fatalf("false positive")
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &model.TransportError{URL: "https://x", Err: inner}
	if !errors.Is(err, inner) {
		t.Fatalf("unwrap broken")
	}
	if !model.IsTransportError(fmt.Errorf("wrap: %w", err)) {
		t.Fatalf("wrapped not recognized")
	}
}

func TestHasField(t *testing.T) {
	fields := []model.MetadataField{model.FieldAuthor, model.FieldURL}
	if !model.HasField(fields, model.FieldAuthor) || model.HasField(fields, model.FieldTags) {
		t.Fatalf("HasField wrong")
	}
}
