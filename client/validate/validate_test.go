package validate_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/adamwoolhether/apiclient/client/apierr"
	"github.com/adamwoolhether/apiclient/client/validate"
)

type chatRequest struct {
	Query string         `json:"query" validate:"required"`
	User  string         `json:"user"  validate:"required"`
	Input map[string]any `json:"inputs"`
}

func TestQuery(t *testing.T) {
	small := validate.Limits{MaxStringLength: 5, MaxItems: 2, MaxKeys: 3, MaxDepth: 4}

	testCases := []struct {
		name   string
		query  map[string]any
		expErr bool
		field  string
	}{
		{name: "nil", query: nil},
		{name: "scalars", query: map[string]any{"user": "abc", "limit": 20, "pinned": true, "ratio": 0.5}},
		{name: "list", query: map[string]any{"ids": []string{"a", "b"}}},
		{name: "nil value skipped", query: map[string]any{"user": nil}},
		{name: "long string", query: map[string]any{"user": "abcdef"}, expErr: true, field: "query.user"},
		{name: "long list", query: map[string]any{"ids": []int{1, 2, 3}}, expErr: true, field: "query.ids"},
		{name: "nested list", query: map[string]any{"ids": []any{[]int{1}}}, expErr: true, field: "query.ids[0]"},
		{name: "object value", query: map[string]any{"filter": map[string]any{"a": 1}}, expErr: true, field: "query.filter"},
		{name: "nan", query: map[string]any{"score": math.NaN()}, expErr: true, field: "query.score"},
		{name: "too many keys", query: map[string]any{"a": 1, "b": 2, "c": 3, "d": 4}, expErr: true, field: "query"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := small.Query(tc.query)
			if !tc.expErr {
				if err != nil {
					t.Fatalf("exp nil err, got: %v", err)
				}
				return
			}

			if !errors.Is(err, apierr.ErrValidation) {
				t.Fatalf("exp validation error, got: %v", err)
			}

			fields := validate.GetFieldErrors(err).Fields()
			if _, ok := fields[tc.field]; !ok {
				t.Errorf("exp field %q in %v", tc.field, fields)
			}

			ae, _ := apierr.As(err)
			if ae.StatusCode != 0 {
				t.Errorf("local validation must not carry a status, got %d", ae.StatusCode)
			}
		})
	}
}

func TestBody(t *testing.T) {
	small := validate.Limits{MaxStringLength: 10, MaxItems: 2, MaxKeys: 2, MaxDepth: 2}

	testCases := []struct {
		name   string
		body   any
		expErr bool
		field  string
	}{
		{name: "nil", body: nil},
		{name: "map", body: map[string]any{"query": "hi", "user": "u1"}},
		{name: "struct ok", body: chatRequest{Query: "hi", User: "u1"}},
		{name: "struct pointer ok", body: &chatRequest{Query: "hi", User: "u1"}},
		{name: "required tag", body: chatRequest{Query: "hi"}, expErr: true, field: "body.chatRequest.user"},
		{name: "long nested string", body: map[string]any{"inputs": map[string]any{"x": strings.Repeat("a", 11)}}, expErr: true, field: "body.inputs.x"},
		{name: "too many keys", body: map[string]any{"a": 1, "b": 2, "c": 3}, expErr: true, field: "body"},
		{name: "too many items", body: []int{1, 2, 3}, expErr: true, field: "body"},
		{name: "too deep", body: map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}, expErr: true, field: "body.a.b.c"},
		{name: "non string keys", body: map[int]string{1: "a"}, expErr: true, field: "body"},
		{name: "func", body: map[string]any{"cb": func() {}}, expErr: true, field: "body.cb"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := small.Body(tc.body)
			if !tc.expErr {
				if err != nil {
					t.Fatalf("exp nil err, got: %v", err)
				}
				return
			}

			if !errors.Is(err, apierr.ErrValidation) {
				t.Fatalf("exp validation error, got: %v", err)
			}

			fields := validate.GetFieldErrors(err).Fields()
			if _, ok := fields[tc.field]; !ok {
				t.Errorf("exp field %q in %v", tc.field, fields)
			}
		})
	}
}

func TestDefaultLimits(t *testing.T) {
	if err := validate.Query(map[string]any{"user": "abc"}); err != nil {
		t.Errorf("exp nil err, got: %v", err)
	}
	if err := validate.Body(map[string]any{"query": strings.Repeat("x", validate.DefaultLimits.MaxStringLength+1)}); err == nil {
		t.Error("exp oversized body string to be rejected")
	}
}
