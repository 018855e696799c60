package http

import (
	"strconv"
	"strings"
	"unicode"
)

// ValidateAnswer applies the server-side rule for question index. Questions
// without a rule accept any answer.
func ValidateAnswer(index int, answer string) (bool, string) {
	switch index {
	case 0:
		return validateDestination(answer)
	case 1:
		return validateBudget(answer)
	case 2:
		return validateDates(answer)
	case 3:
		return validatePeople(answer)
	}
	return true, ""
}

func validateDestination(text string) (bool, string) {
	if len([]rune(text)) < 2 {
		return false, "Please enter a valid destination name (at least 2 characters)."
	}
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		return false, "A destination name shouldn't contain numbers. Please enter a valid city or country name."
	}
	switch strings.ToLower(text) {
	case "hi", "hello", "hey":
		return false, "Please enter a destination name instead of a greeting. Where would you like to travel?"
	}
	return true, ""
}

func validateBudget(text string) (bool, string) {
	text = strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(text))
	amount, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return false, "Please enter a valid number for your budget (e.g., 1000 or 1,500)."
	}
	if amount <= 0 {
		return false, "Please enter a positive amount for your budget."
	}
	return true, ""
}

func validateDates(text string) (bool, string) {
	if strings.IndexFunc(text, unicode.IsDigit) < 0 {
		return false, "Please include dates in your response (e.g., May 1-5, 2025)."
	}
	return true, ""
}

func validatePeople(text string) (bool, string) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return false, "Please enter a number for the group size (e.g., 2)."
	}
	if n <= 0 {
		return false, "Please enter a valid number of travelers (must be at least 1)."
	}
	return true, ""
}
