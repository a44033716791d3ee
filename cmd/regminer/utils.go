package main

import (
	"time"

	"github.com/gertd/go-pluralize"
)

var pluralizeClient = pluralize.NewClient()

func plural(word string, count int) string {
	return pluralizeClient.Pluralize(word, count, false)
}

func toOption[T comparable](d T) *T {
	var def T

	if d == def {
		return nil
	} else {
		return &d
	}
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	result, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}

	return &result, nil
}
