package frontdeskRepository

const (
	knowledgeColumns = `
			id, question, answer, category, keywords, provenance,
			source_request_id, usage_count, last_used_at, is_active,
			created_at, updated_at`

	helpRequestColumns = `
			id, customer_phone, customer_name, question, context, status,
			supervisor_response, supervisor_name, responded_at, session_key,
			created_at, updated_at`

	queryCreateKnowledgeEntry = `
		INSERT INTO knowledge_entries (
			id, question, answer, category, keywords, provenance,
			source_request_id, usage_count, is_active, created_at, updated_at
		) VALUES (
			:id, :question, :answer, :category, :keywords, :provenance,
			:source_request_id, 0, TRUE, :created_at, :updated_at
		)
	`

	queryGetKnowledgeEntryByID = `
		SELECT` + knowledgeColumns + `
		FROM knowledge_entries
		WHERE id = :id
	`

	querySearchKnowledgeEntries = `
		SELECT` + knowledgeColumns + `
		FROM knowledge_entries
		WHERE is_active = TRUE
		AND knowledge_document(question, answer, keywords) @@ to_tsquery('english', :query)
		ORDER BY ts_rank(knowledge_document(question, answer, keywords), to_tsquery('english', :query)) DESC,
			usage_count DESC, id ASC
		LIMIT :limit
	`

	queryFindKnowledgeEntriesByKeywords = `
		SELECT` + knowledgeColumns + `
		FROM knowledge_entries
		WHERE is_active = TRUE
		AND keywords && :keywords
		ORDER BY usage_count DESC, id ASC
		LIMIT :limit
	`

	queryRecordKnowledgeEntryUsage = `
		UPDATE knowledge_entries
		SET
			usage_count = usage_count + 1,
			last_used_at = :used_at
		WHERE id = :id
		RETURNING` + knowledgeColumns

	queryListActiveKnowledgeEntries = `
		SELECT` + knowledgeColumns + `
		FROM knowledge_entries
		WHERE is_active = TRUE
		ORDER BY created_at DESC, id DESC
		LIMIT :limit
	`

	querySetKnowledgeEntryActive = `
		UPDATE knowledge_entries
		SET
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id
		RETURNING` + knowledgeColumns

	queryCountKnowledgeEntries = `
		SELECT COUNT(*) FROM knowledge_entries
	`

	queryCreateHelpRequest = `
		INSERT INTO help_requests (
			id, customer_phone, customer_name, question, context,
			status, session_key, created_at, updated_at
		) VALUES (
			:id, :customer_phone, :customer_name, :question, :context,
			:status, :session_key, :created_at, :updated_at
		)
	`

	queryGetHelpRequestByID = `
		SELECT` + helpRequestColumns + `
		FROM help_requests
		WHERE id = :id
	`

	queryListHelpRequests = `
		SELECT` + helpRequestColumns + `
		FROM help_requests
		ORDER BY created_at DESC, id DESC
		LIMIT :limit
	`

	queryListHelpRequestsByStatus = `
		SELECT` + helpRequestColumns + `
		FROM help_requests
		WHERE status = :status
		ORDER BY created_at DESC, id DESC
		LIMIT :limit
	`

	queryRespondToHelpRequest = `
		UPDATE help_requests
		SET
			status = :status,
			supervisor_response = :supervisor_response,
			supervisor_name = :supervisor_name,
			responded_at = :responded_at,
			updated_at = :responded_at
		WHERE id = :id AND status = 'PENDING'
		RETURNING` + helpRequestColumns

	queryCountHelpRequestsByStatus = `
		SELECT status, COUNT(*) AS count
		FROM help_requests
		GROUP BY status
	`
)
