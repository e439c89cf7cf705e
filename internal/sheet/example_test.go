package sheet_test

import (
	"fmt"

	"github.com/dsadash/dsadash/internal/sheet"
)

func ExampleParseQuestions() {
	export := "Name,Platform,Link,Topic,Status,Pinned\n" +
		"Two Sum,LeetCode,https://leetcode.com/problems/two-sum,Arrays,Solved,TRUE\n" +
		"\"Valid Parentheses, easy\",LeetCode,https://leetcode.com/problems/valid-parentheses,Stack,,\n"

	questions, err := sheet.ParseQuestions(export)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, q := range questions {
		fmt.Printf("%s [%s] pinned=%t\n", q.Name, q.Status, q.Pinned)
	}
	// Output:
	// Two Sum [Solved] pinned=true
	// Valid Parentheses, easy [Pending] pinned=false
}
