package eval

import (
	"fmt"
	"strings"
)

// The instruction templates below are load-bearing: the parser layer expects
// the JSON shapes they demand, and the score bands in the judge template
// anchor the judge's calibration. Edit with care.

func buildGenerationPrompt(prompt, domain string, numCases int, exampleExpected string) string {
	domainContext := ""
	if domain != "" {
		domainContext = fmt.Sprintf(" in the %s domain", domain)
	}

	exampleSection := ""
	if exampleExpected != "" {
		exampleSection = fmt.Sprintf(`
IMPORTANT: Generate expected outputs that follow a similar format and style to this example:
%s

The expected outputs should maintain the same structure, formatting, and level of detail as the example above.
`, exampleExpected)
	}

	return fmt.Sprintf(`You are a test case generator. Generate %d diverse test cases%s for the given prompt.

Each test case should have:
- input: A realistic input that would test the prompt
- expected: The expected output when the prompt is applied to the input
%s
Generate %d test cases for this prompt:

%s

Return ONLY a valid JSON array with objects containing 'input' and 'expected' fields. No other text, explanation, or formatting.

IMPORTANT: Ensure all strings are properly escaped. Replace actual newlines with \n.

Example format:
[
    {"input": "example input", "expected": "expected output"},
    {"input": "another input", "expected": "another expected output"}
]`, numCases, domainContext, exampleSection, numCases, prompt)
}

func buildJudgePrompt(expected, actual string) string {
	return fmt.Sprintf(`Evaluate if the actual output conveys the same meaning and context as expected.
Focus on semantic equivalence, not exact wording.

Expected: %s
Actual: %s

Score 0-1 based on meaning similarity:
1.0 = Same meaning/intent
0.8-0.9 = Very similar meaning
0.6-0.7 = Mostly similar
0.4-0.5 = Partially similar
0.0-0.3 = Different meaning

JSON: {"score": float, "reasoning": "brief explanation"}`, expected, actual)
}

func buildEnhancementPrompt(prompt, domain string) string {
	domainContext := ""
	if domain != "" {
		domainContext = fmt.Sprintf(" in the %s domain", domain)
	}

	return fmt.Sprintf(`You are a prompt engineering expert. Enhance the given prompt%s using best practices:

1. Add clear role definition
2. Provide step-by-step instructions
3. Include relevant examples
4. Add output format specifications
5. Include edge case handling

Enhance this prompt:

%s

Return ONLY a valid JSON object with:
- 'enhanced_prompt': The improved prompt (as a single string)
- 'improvements': Array of strings describing what was improved

IMPORTANT:
- Ensure all strings are properly escaped
- Replace actual newlines with \n in the JSON
- Do NOT include code blocks or markdown formatting within the JSON strings
- Keep the enhanced_prompt as a single continuous string

Example format:
{
    "enhanced_prompt": "Your enhanced prompt here as a single string",
    "improvements": ["improvement 1", "improvement 2"]
}`, domainContext, prompt)
}

// buildCaseInput is the user turn for executing one case against the prompt
// under evaluation.
func buildCaseInput(prompt string, tc TestCase) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nInput: ")
	b.WriteString(tc.Input)
	return b.String()
}
