package internal

// CreateTestThread creates a thread with a greeting, a question and an answer
func CreateTestThread(id string) *Thread {
	return &Thread{
		ID:   id,
		Name: "Test Conversation",
		Date: "01.06.2024",
		Messages: []ChatMessage{
			{Sender: SenderAssistant, Text: GreetingText},
			{Sender: SenderUser, Text: "Can my landlord keep the deposit?"},
			{Sender: SenderAssistant, Text: "Only for documented damage."},
		},
	}
}

// CreateTestThreadWithMessages creates a thread with custom messages
func CreateTestThreadWithMessages(id string, messages []ChatMessage) *Thread {
	return &Thread{
		ID:       id,
		Name:     "Chat 1",
		Date:     "01.06.2024",
		Messages: messages,
	}
}
