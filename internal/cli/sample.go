package cli

import "contest-service/internal/domain"

// sampleQuestionSets is the content served when no question store is configured.
func sampleQuestionSets() []domain.QuestionSet {
	return []domain.QuestionSet{
		{
			Round:   domain.Round1,
			Variant: "python",
			Questions: []domain.Question{
				{ID: "py-1", Prompt: "What does len([1, 2, 3]) return?", Options: []string{"2", "3", "4", "An error"}, CorrectOption: 1},
				{ID: "py-2", Prompt: "Which keyword defines a function?", Options: []string{"func", "def", "fn", "lambda"}, CorrectOption: 1},
				{ID: "py-3", Prompt: "What is the type of {}?", Options: []string{"set", "list", "dict", "tuple"}, CorrectOption: 2},
			},
		},
		{
			Round:   domain.Round1,
			Variant: "c",
			Questions: []domain.Question{
				{ID: "c-1", Prompt: "What does sizeof(char) evaluate to?", Options: []string{"0", "1", "2", "4"}, CorrectOption: 1},
				{ID: "c-2", Prompt: "Which header declares printf?", Options: []string{"stdlib.h", "string.h", "stdio.h", "math.h"}, CorrectOption: 2},
				{ID: "c-3", Prompt: "Which operator takes an address?", Options: []string{"*", "&", "->", "%"}, CorrectOption: 1},
			},
		},
		{
			Round: domain.Round2,
			Questions: []domain.Question{
				{ID: "r2-1", Prompt: "Worst case lookup in a balanced BST?", Options: []string{"O(1)", "O(log n)", "O(n)", "O(n log n)"}, CorrectOption: 1},
				{ID: "r2-2", Prompt: "Which structure serves breadth-first search?", Options: []string{"Stack", "Queue", "Heap", "Trie"}, CorrectOption: 1},
				{ID: "r2-3", Prompt: "HTTP status for a created resource?", Options: []string{"200", "201", "204", "302"}, CorrectOption: 1},
			},
		},
		{
			Round:   domain.Round3,
			Variant: string(domain.TrackDSA),
			Questions: []domain.Question{
				{ID: "dsa-1", Prompt: "Return the k most frequent elements of an array."},
				{ID: "dsa-2", Prompt: "Find the shortest path in a weighted grid."},
			},
		},
		{
			Round:   domain.Round3,
			Variant: string(domain.TrackWeb),
			Questions: []domain.Question{
				{ID: "web-1", Prompt: "Build a paginated list endpoint with filtering."},
				{ID: "web-2", Prompt: "Implement a login form with client-side validation."},
			},
		},
	}
}
