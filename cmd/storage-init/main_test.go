package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

func TestAlreadyExists(t *testing.T) {
	exists := fmt.Errorf("create: %w", &azcore.ResponseError{StatusCode: 409, ErrorCode: string(aztables.TableAlreadyExists)})
	if !alreadyExists(exists, string(aztables.TableAlreadyExists)) {
		t.Fatalf("expected wrapped conflict to be recognised")
	}
	if alreadyExists(exists, queueAlreadyExists) {
		t.Fatalf("error codes must match exactly")
	}
	if alreadyExists(errors.New("boom"), queueAlreadyExists) || alreadyExists(nil, queueAlreadyExists) {
		t.Fatalf("unexpected match")
	}
}
