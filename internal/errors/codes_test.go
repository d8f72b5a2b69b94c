package errors

import "testing"

func TestErrorCodeTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		phase    string
		category string
	}{
		{"E0000", E0000, "generic", "user"},
		{"E0223", E0223, "ufcs", "ambiguity"},
		{"AST001", AST001, "ast", "import"},
		{"EXP005", EXP005, "expand", "langitem"},
		{"UFC002", UFC002, "ufcs", "ambiguity"},
		{"HIR001", HIR001, "hir", "alias"},
		{"CEV004", CEV004, "consteval", "arithmetic"},
		{"BUG001", BUG001, "bugcheck", "invariant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, exists := GetErrorInfo(tt.code)
			if !exists {
				t.Fatalf("error code %s not found in registry", tt.code)
			}
			if info.Code != tt.code {
				t.Errorf("code mismatch: got %s, want %s", info.Code, tt.code)
			}
			if info.Phase != tt.phase {
				t.Errorf("phase mismatch for %s: got %s, want %s", tt.code, info.Phase, tt.phase)
			}
			if info.Category != tt.category {
				t.Errorf("category mismatch for %s: got %s, want %s", tt.code, info.Category, tt.category)
			}
		})
	}
}

func TestIsBugCheck(t *testing.T) {
	if !IsBugCheck(BUG002) {
		t.Errorf("expected %s to be a bug check", BUG002)
	}
	if IsBugCheck(E0000) {
		t.Errorf("did not expect %s to be a bug check", E0000)
	}
}

func TestAllErrorCodesInRegistry(t *testing.T) {
	allCodes := []string{
		E0000, E0223,
		AST001, AST002, AST003,
		EXP001, EXP002, EXP003, EXP004, EXP005, EXP006, EXP007, EXP008,
		UFC001, UFC002, UFC003,
		HIR001, HIR002, HIR003, HIR004, HIR005,
		CEV001, CEV002, CEV003, CEV004, CEV005,
		BUG001, BUG002, BUG003,
	}

	for _, code := range allCodes {
		t.Run(code, func(t *testing.T) {
			if _, exists := GetErrorInfo(code); !exists {
				t.Errorf("error code %s is defined but not in registry", code)
			}
		})
	}

	if len(ErrorRegistry) < len(allCodes) {
		t.Errorf("registry has %d codes, expected at least %d", len(ErrorRegistry), len(allCodes))
	}
}

func TestErrorInfoConsistency(t *testing.T) {
	validPhases := map[string]bool{
		"generic": true, "ast": true, "expand": true, "ufcs": true,
		"hir": true, "consteval": true, "bugcheck": true,
	}

	for code, info := range ErrorRegistry {
		if info.Code != code {
			t.Errorf("code mismatch in registry: key=%s, info.Code=%s", code, info.Code)
		}
		if len(code) < 4 || len(code) > 6 {
			t.Errorf("invalid code format: %s", code)
		}
		if !validPhases[info.Phase] {
			t.Errorf("invalid phase for %s: %s", code, info.Phase)
		}
		if info.Description == "" {
			t.Errorf("empty description for %s", code)
		}
	}
}
