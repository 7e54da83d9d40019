package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHarvestRequestLimit(t *testing.T) {
	tests := []struct {
		name       string
		maxResults int
		want       int
	}{
		{name: "zero selects ceiling", maxResults: 0, want: MaxResultsCeiling},
		{name: "negative selects ceiling", maxResults: -5, want: MaxResultsCeiling},
		{name: "within bounds kept", maxResults: 250, want: 250},
		{name: "at ceiling kept", maxResults: MaxResultsCeiling, want: MaxResultsCeiling},
		{name: "above ceiling clamped", maxResults: 5000, want: MaxResultsCeiling},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := HarvestRequest{APIKey: "key", Query: "q", MaxResults: tt.maxResults}
			assert.Equal(t, tt.want, req.Limit())
		})
	}
}

func TestHarvestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     HarvestRequest
		wantErr bool
	}{
		{name: "valid", req: HarvestRequest{APIKey: "key", Query: "crispr"}, wantErr: false},
		{name: "missing api key", req: HarvestRequest{Query: "crispr"}, wantErr: true},
		{name: "blank api key", req: HarvestRequest{APIKey: "   ", Query: "crispr"}, wantErr: true},
		{name: "missing query", req: HarvestRequest{APIKey: "key"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestHarvestRunAppendAndLatestTitle(t *testing.T) {
	run := NewHarvestRun(HarvestRequest{APIKey: "key", Query: "graphene"})
	require.NotEqual(t, "", run.ID.String())
	assert.Equal(t, MaxResultsCeiling, run.Limit)
	assert.Equal(t, "", run.LatestTitle())

	run.Append([]Paper{{Title: "first"}, {Title: "second"}})
	run.Append([]Paper{{Title: "third"}})

	assert.Len(t, run.Accumulated, 3)
	assert.Equal(t, "third", run.LatestTitle())
	assert.Equal(t, "first", run.Accumulated[0].Title)
}

func TestHarvestRunTerminateOnlyOnce(t *testing.T) {
	run := NewHarvestRun(HarvestRequest{APIKey: "key", Query: "q"})

	run.Terminate(TerminationExhausted)
	run.Terminate(TerminationUpstreamError)

	assert.True(t, run.Terminated)
	assert.Equal(t, TerminationExhausted, run.Reason)
}

func TestTerminationReasonIsError(t *testing.T) {
	assert.False(t, TerminationExhausted.IsError())
	assert.False(t, TerminationLimitReached.IsError())
	assert.False(t, TerminationCancelled.IsError())
	assert.True(t, TerminationUpstreamError.IsError())
}

func TestErrorUnwrapping(t *testing.T) {
	assert.True(t, errors.Is(NewNotFoundError("artifact", "x.csv"), ErrNotFound))
	assert.True(t, errors.Is(NewValidationError("query", "is required"), ErrInvalidInput))
	assert.True(t, errors.Is(NewRateLimitError("serpapi", 0), ErrRateLimited))

	cause := errors.New("boom")
	apiErr := NewExternalAPIError("serpapi", 500, "server error", cause)
	assert.True(t, errors.Is(apiErr, cause))
	assert.Contains(t, apiErr.Error(), "status 500")
}
