package routes

// Tables lists the user tables.
func Tables() string {
	return "/tables"
}

// TableData returns every row of one table.
func TableData() string {
	return Tables() + "/data/:table_name"
}

// TestTools runs the SQL tools once against the sample data.
func TestTools() string {
	return "/test_sql_tools"
}

// ChatQuery answers a natural language question.
func ChatQuery() string {
	return "/chat_query"
}

// ChatQueryStream streams the agent's node updates.
func ChatQueryStream() string {
	return ChatQuery() + "/stream"
}

// ChatHistory reads or clears the conversation.
func ChatHistory() string {
	return "/chat_history"
}

// DirectQuery runs raw SQL.
func DirectQuery() string {
	return "/direct_query"
}

// Health is the liveness probe.
func Health() string {
	return "/healthz"
}
