package validator

import "testing"

func TestParseReading_Valid(t *testing.T) {
	value, result := ParseReading("current reading", " 160 ")
	if !result.IsValid {
		t.Fatalf("Expected valid result, got invalid: %s", result.Message)
	}
	if value != 160 {
		t.Errorf("Expected value 160, got %f", value)
	}
}

func TestParseReading_ThousandsSeparator(t *testing.T) {
	value, result := ParseReading("current reading", "1,250.5")
	if !result.IsValid {
		t.Fatalf("Expected valid result, got invalid: %s", result.Message)
	}
	if value != 1250.5 {
		t.Errorf("Expected value 1250.5, got %f", value)
	}
}

func TestParseReading_MisplacedComma(t *testing.T) {
	for _, raw := range []string{"1,5", "150,75", "1,2,3", ",150", "1250,", "1,25.5", "1,250,5"} {
		value, result := ParseReading("current reading", raw)
		if result.IsValid {
			t.Errorf("Expected invalid result for %q, got %f", raw, value)
			continue
		}
		if result.Message != "current reading must be a number" {
			t.Errorf("Unexpected message '%s' for %q", result.Message, raw)
		}
	}
}

func TestParseReading_Empty(t *testing.T) {
	_, result := ParseReading("current reading", "")
	if result.IsValid {
		t.Fatal("Expected invalid result for empty input")
	}
	if result.Message != "current reading is required" {
		t.Errorf("Unexpected message '%s'", result.Message)
	}
}

func TestParseReading_NotANumber(t *testing.T) {
	for _, raw := range []string{"abc", "NaN", "Inf", "12a"} {
		_, result := ParseReading("current reading", raw)
		if result.IsValid {
			t.Errorf("Expected invalid result for %q", raw)
		}
		if result.Field != "current reading" {
			t.Errorf("Expected field to be reported for %q", raw)
		}
	}
}

func TestParseReading_Negative(t *testing.T) {
	_, result := ParseReading("current reading", "-3")
	if result.IsValid {
		t.Fatal("Expected invalid result for negative reading")
	}
	if result.Message != "current reading cannot be negative" {
		t.Errorf("Unexpected message '%s'", result.Message)
	}
}

func TestValidateTask(t *testing.T) {
	cases := []struct {
		name  string
		in    TaskFields
		field string
	}{
		{"missing title", TaskFields{Title: "  ", TypeID: 1, AssignedTo: 2}, "title"},
		{"missing type", TaskFields{Title: "Inspect", AssignedTo: 2}, "type"},
		{"missing assignee", TaskFields{Title: "Inspect", TypeID: 1}, "assignee"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateTask(tc.in)
			if result.IsValid {
				t.Fatal("Expected invalid result")
			}
			if result.Field != tc.field {
				t.Errorf("Expected field %s, got %s", tc.field, result.Field)
			}
		})
	}

	if result := ValidateTask(TaskFields{Title: "Inspect", TypeID: 1, AssignedTo: 2}); !result.IsValid {
		t.Errorf("Expected valid task, got %s", result.Message)
	}
}
