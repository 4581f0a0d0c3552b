package eval

const JudgeSystemMessage = `You are an impartial evaluator of question-answering systems.
You will receive a question, the expected answer, the answer produced by the
system under test, and the context passages the system retrieved.
Score the produced answer on three axes, each from 0.0 to 1.0:
- correctness: how well the answer matches the expected answer.
- faithfulness: whether every claim in the answer is supported by the context
  passages. Unsupported claims lower the score.
- context_relevance: whether the context passages contain the information
  needed to answer the question, regardless of what the system answered.
Respond with a single JSON object and nothing else:
{"correctness": <float>, "faithfulness": <float>, "context_relevance": <float>, "rationale": "<one or two sentences>"}`

const judgePromptTmpl = `Question:
{{.Question}}

Expected answer:
{{.ExpectedAnswer}}

Produced answer:
{{.Answer}}

Retrieved context:
{{.Context}}`

// judgePromptData holds the slots of the judge prompt template.
type judgePromptData struct {
	Question       string
	ExpectedAnswer string
	Answer         string
	Context        string
}
