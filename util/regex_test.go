package util

import (
	"regexp"
	"testing"
)

func TestGetRegexCaptureGroups(t *testing.T) {
	re := regexp.MustCompile(`^/(?P<user>[^/]+)/order_(?P<orderId>[0-9]+)/(?P<file>[^/]+)$`)
	groups := GetRegexCaptureGroups("/alice/order_07/product.zip", re)
	if groups["user"] != "alice" || groups["orderId"] != "07" || groups["file"] != "product.zip" {
		t.Errorf("unexpected groups %v", groups)
	}
	if got := GetRegexCaptureGroups("/nomatch", re); len(got) != 0 {
		t.Errorf("expected no groups, got %v", got)
	}
}

func TestSanitizePath(t *testing.T) {
	if err := SanitizePath("alice/order_01/file.zip"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := SanitizePath("../etc/passwd"); err == nil {
		t.Error("expected traversal to be rejected")
	}
	if err := SanitizePath("a%2e%2e/b"); err == nil {
		t.Error("expected encoded path to be rejected")
	}
}
