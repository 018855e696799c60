package intake

// DefaultQuestions returns the stock trip questionnaire. Question 0 asks for the destination.
func DefaultQuestions() []string {
	return []string{
		"Hey there! Where are you planning to travel?",
		"Cool! What's your budget for this trip in dollars?",
		"When are you traveling, and how many days are you staying? (e.g., May 1-5, 2025)",
		"How many people are traveling with you?",
		"What are you into—culture, food, adventure, relaxation, or something else?",
		"Any preference for accommodation—like hotels, Airbnb, or budget stays?",
		"What kind of pace do you prefer—relaxed, balanced, or packed with activities?",
		"Would you like public transport, rental car, or private taxis during your stay?",
		"Do you have any must-visit places or experiences in mind?",
	}
}
