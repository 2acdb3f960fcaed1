package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
// Stream emite Deltas en orden y luego devuelve StreamErr.
type MockClient struct {
	Response  string
	Err       error
	Deltas    []string
	StreamErr error

	Prompts []Prompt
}

func (m *MockClient) Generate(_ context.Context, prompt Prompt) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	return m.Response, m.Err
}

func (m *MockClient) Stream(_ context.Context, prompt Prompt, onDelta func(string) error) error {
	m.Prompts = append(m.Prompts, prompt)
	for _, d := range m.Deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return m.StreamErr
}
