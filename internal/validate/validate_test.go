package validate

import "testing"

func TestEmail(t *testing.T) {
	cases := map[string]bool{
		"alice@dreamhome.test":   true,
		"  bob@dreamhome.test  ": true,
		"no-at-sign":             false,
		"a@b":                    false,
		"":                       false,
	}
	for in, want := range cases {
		if _, ok := Email(in); ok != want {
			t.Errorf("Email(%q) = %v, want %v", in, ok, want)
		}
	}
}

func TestPassword(t *testing.T) {
	if !Password("Passw0rd!") {
		t.Fatal("expected strong password to pass")
	}
	for _, p := range []string{"short1!", "alllowercase1!", "NoDigits!!", "NoSymbol11"} {
		if Password(p) {
			t.Errorf("Password(%q) should fail", p)
		}
	}
}

func TestIDAndUsername(t *testing.T) {
	if _, ok := ID("65a1f0c2e4b0a1b2c3d4e5f6"); !ok {
		t.Error("object id should be a valid id")
	}
	if _, ok := ID("../etc/passwd"); ok {
		t.Error("path should be rejected")
	}
	if _, ok := Username("alice.smith"); !ok {
		t.Error("username should pass")
	}
	if _, ok := Username("<b>"); ok {
		t.Error("markup should be rejected")
	}
}

func TestPrompt(t *testing.T) {
	if got, ok := Prompt("  hello  "); !ok || got != "hello" {
		t.Errorf("Prompt trimmed = %q, %v", got, ok)
	}
	if _, ok := Prompt("   "); ok {
		t.Error("blank prompt should fail")
	}
}
