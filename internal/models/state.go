package models

// ChatState identifies which handler owns the next inbound message of a
// chat. Exactly one state is active per chat at any time, which replaces
// the grab-bag of boolean "awaiting" flags the bot grew out of.
type ChatState string

const (
	// StateIdle is the canonical main-menu state.
	StateIdle ChatState = "idle"

	// Registration sub-flow, strictly ordered.
	StateAwaitingFullName    ChatState = "awaiting_full_name"
	StateAwaitingDistrict    ChatState = "awaiting_district"
	StateAwaitingRegion      ChatState = "awaiting_region"
	StateAwaitingDisplayName ChatState = "awaiting_display_name"

	// Pending single-value prompts, mutually exclusive.
	StateAwaitingNewUserID    ChatState = "awaiting_new_user_id"
	StateAwaitingNewAdminID   ChatState = "awaiting_new_admin_id"
	StateAwaitingRemoveUserID ChatState = "awaiting_remove_user_id"
	StateAwaitingRemoveFactID ChatState = "awaiting_remove_fact_id"
	StateAwaitingNewFact      ChatState = "awaiting_new_fact"
	StateAwaitingBroadcast    ChatState = "awaiting_broadcast"
	StateAwaitingReportQuery  ChatState = "awaiting_report_query"

	// StateAwaitingReportAnswer collects answers for the open report.
	StateAwaitingReportAnswer ChatState = "awaiting_report_answer"

	// Document-tree navigation and upload.
	StateBrowsingDocs   ChatState = "browsing_docs"
	StateAwaitingUpload ChatState = "awaiting_upload"
)

// IsRegistrationState reports whether s belongs to the registration
// sub-flow.
func IsRegistrationState(s ChatState) bool {
	switch s {
	case StateAwaitingFullName, StateAwaitingDistrict, StateAwaitingRegion, StateAwaitingDisplayName:
		return true
	default:
		return false
	}
}

// IsPromptState reports whether s is one of the pending single-value
// prompt states.
func IsPromptState(s ChatState) bool {
	switch s {
	case StateAwaitingNewUserID, StateAwaitingNewAdminID, StateAwaitingRemoveUserID,
		StateAwaitingRemoveFactID, StateAwaitingNewFact, StateAwaitingBroadcast,
		StateAwaitingReportQuery:
		return true
	default:
		return false
	}
}
