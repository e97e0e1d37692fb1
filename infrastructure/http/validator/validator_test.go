package validator

import "testing"

func TestValidateEmail(t *testing.T) {
	valid := []string{"alice@example.com", "a.b+tag@sub.example.org"}
	for _, email := range valid {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("Expected %q to be valid, got %v", email, err)
		}
	}

	invalid := []string{"", "not-an-email", "@example.com", "alice@"}
	for _, email := range invalid {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("Expected %q to be invalid", email)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"bob", "alice_01", "AB_cd_99"}
	for _, username := range valid {
		if err := ValidateUsername(username); err != nil {
			t.Errorf("Expected %q to be valid, got %v", username, err)
		}
	}

	invalid := []string{"", "ab", "has space", "dash-ed", "waaaaaaaaaaaaaaaaaaaaaaaaaaaaaaytoolong"}
	for _, username := range invalid {
		if err := ValidateUsername(username); err == nil {
			t.Errorf("Expected %q to be invalid", username)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("12345678"); err != nil {
		t.Errorf("Expected 8-character password to pass, got %v", err)
	}
	if err := ValidatePassword("1234567"); err == nil {
		t.Error("Expected 7-character password to fail")
	}
}

func TestValidateRequired(t *testing.T) {
	if ValidateRequired("  ") {
		t.Error("Whitespace-only value should not count as present")
	}
	if !ValidateRequired("x") {
		t.Error("Non-empty value should count as present")
	}
}
