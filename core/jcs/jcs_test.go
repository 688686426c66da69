package jcs

import "testing"

func TestDigestStableAcrossKeyOrder(test *testing.T) {
	left, err := DigestJCS([]byte(`{"b":1,"a":2}`))
	if err != nil {
		test.Fatalf("digest left: %v", err)
	}
	right, err := DigestJCS([]byte(`{"a":2,"b":1}`))
	if err != nil {
		test.Fatalf("digest right: %v", err)
	}
	if left != right {
		test.Fatalf("digest not canonical: %s vs %s", left, right)
	}
}

func TestDigestRejectsInvalidJSON(test *testing.T) {
	if _, err := DigestJCS([]byte(`{`)); err == nil {
		test.Fatalf("expected error for invalid json")
	}
}
