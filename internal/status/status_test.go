package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromCode(t *testing.T) {
	tests := []struct {
		code     int
		expected Status
	}{
		{3, OK},
		{4, Warning},
		{5, Error},
		{6, Unknown},
		{7, Paused},
		{8, Paused},
		{9, Paused},
		{10, Paused},
		{11, Unusual},
		{12, Paused},
		{13, Error},
		{14, Error},
		{99, Unknown},
		{0, Unknown},
		{-1, Unknown},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, FromCode(tc.code), "code %d", tc.code)
	}
}

func TestWorst(t *testing.T) {
	tests := []struct {
		name     string
		codes    []int
		expected Status
	}{
		{"error wins over everything", []int{3, 4, 5}, Error},
		{"warning beats ok", []int{3, 4}, Warning},
		{"paused via max raw code", []int{3, 7}, Paused},
		{"acknowledged down is error", []int{3, 13}, Error},
		{"partial down is error", []int{14}, Error},
		{"all ok", []int{3, 3, 3}, OK},
		{"unusual via max raw code", []int{3, 11}, Unusual},
		{"paused beats unusual by raw code", []int{11, 12}, Paused},
		{"empty input", nil, Unknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Worst(tc.codes))
		})
	}
}

func TestIsAlertCode(t *testing.T) {
	for _, code := range []int{4, 5, 13, 14} {
		assert.True(t, IsAlertCode(code), "code %d", code)
	}
	for _, code := range []int{3, 7, 11, 12, 0} {
		assert.False(t, IsAlertCode(code), "code %d", code)
	}
}

func TestBranchPriorityOrdering(t *testing.T) {
	// failing branches must sort before healthy ones
	assert.Less(t, BranchPriority(Error), BranchPriority(Unknown))
	assert.Less(t, BranchPriority(Unknown), BranchPriority(Warning))
	assert.Less(t, BranchPriority(Warning), BranchPriority(Unusual))
	assert.Less(t, BranchPriority(Unusual), BranchPriority(Paused))
	assert.Less(t, BranchPriority(Paused), BranchPriority(OK))
}
