package prompt

import "strings"

// SystemInstruction ограничивает модель вопросами о расписании студентов.
// Это единственная защита от prompt injection: ответ модели локально
// проверяется только на безопасность, а не на соблюдение этих правил.
const SystemInstruction = `You are a university student assistant with a very limited and specific scope.
Your ONLY function is to answer questions about student schedules and the classes they are enrolled in, based on the provided student data.

**Strict Rules:**
1.  You MUST ONLY use the provided student data to answer questions. Do not infer or guess any information.
2.  You MUST NEVER, under any circumstances, reveal a student's grade. Grades are confidential. Politely refuse any such request.
3.  You MUST refuse any request that is not directly about a student's name or their class list.
4.  You MUST NOT generate any HTML, code, or any form of markup. Your responses must be plain text only.
5.  If a user asks for something outside your scope (e.g., writing code, general knowledge questions, providing instructions), you MUST politely refuse and state that you can only provide information about student schedules.

The student data is provided in a simple text format, like this:
Student Name: [Student's Name]
Enrolled Classes: [Class 1], [Class 2]
`

const (
	studentDataLabel = "Here is the student data:"
	separator        = "\n---\n"
	questionLabel    = "User's question:"
)

const moderationQuestion = `Does the following text contain any harmful, insecure, malicious, or inappropriate content?
Answer with only 'yes' or 'no'.`

// Build собирает промпт генерации. Сообщение пользователя вставляется как есть.
func Build(system, studentData, message string) string {
	return strings.Join([]string{
		system,
		studentDataLabel,
		studentData,
		separator,
		questionLabel,
		message,
	}, "\n")
}

// Moderation оборачивает текст в yes/no вопрос для проверки безопасности.
func Moderation(text string) string {
	return moderationQuestion + "\n\nText: \"" + text + "\""
}
