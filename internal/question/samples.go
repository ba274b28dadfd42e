package question

// SampleQuestions is the starter bank loaded into memory-backed runs.
func SampleQuestions() []Question {
	return []Question{
		{
			Specialty:      "Computer Science",
			Course:         "2",
			Discipline:     "Programming",
			Topic:          "JavaScript",
			Text:           "What is a closure in JavaScript?",
			Type:           TypeSingle,
			Options:        []string{"A function inside a function", "An object that closes over variables", "A function that keeps access to outer variables", "All of the above"},
			CorrectAnswers: []int{2},
			Points:         2,
		},
		{
			Specialty:      "Computer Science",
			Course:         "2",
			Discipline:     "Programming",
			Topic:          "Python",
			Text:           "Which method adds an element to a list?",
			Type:           TypeSingle,
			Options:        []string{"append()", "add()", "push()", "insert()"},
			CorrectAnswers: []int{0},
			Points:         1,
		},
		{
			Specialty:      "Mathematics",
			Course:         "1",
			Discipline:     "Algebra",
			Topic:          "Equations",
			Text:           "Solve the equation: 2x + 5 = 15",
			Type:           TypeSingle,
			Options:        []string{"x = 5", "x = 10", "x = 7.5", "x = 2.5"},
			CorrectAnswers: []int{0},
			Points:         2,
		},
		{
			Specialty:      "Physics",
			Course:         "2",
			Discipline:     "Mechanics",
			Topic:          "Dynamics",
			Text:           "Newton's second law is expressed by:",
			Type:           TypeMultiple,
			Options:        []string{"F = ma", "a = F/m", "F = mv", "m = F/a"},
			CorrectAnswers: []int{0, 1},
			Points:         3,
		},
	}
}
