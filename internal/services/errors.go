package services

import "errors"

// ErrorKind classifies domain failures for the route layer.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "NotFound"
	KindAccessDenied ErrorKind = "AccessDenied"
	KindValidation   ErrorKind = "ValidationFailed"
	KindConflict     ErrorKind = "Conflict"
)

// Error is a domain failure with a stable kind and a caller-facing message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func notFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func accessDenied(msg string) *Error { return &Error{Kind: KindAccessDenied, Message: msg} }
func invalid(msg string) *Error      { return &Error{Kind: KindValidation, Message: msg} }
func conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }

// KindOf returns the kind of a domain error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}

var (
	ErrUserNotFound         = notFound("user not found")
	ErrTaskNotFound         = notFound("task not found")
	ErrCommentNotFound      = notFound("comment not found")
	ErrNotificationNotFound = notFound("notification not found")
	ErrTemplateNotFound     = notFound("template not found")
	ErrAttachmentNotFound   = notFound("attachment not found")

	ErrTaskAccessDenied       = accessDenied("you do not have access to this task")
	ErrNotTaskCreator         = accessDenied("only the task creator can perform this action")
	ErrNotCommentAuthor       = accessDenied("only the comment author can edit this comment")
	ErrCommentDeleteDenied    = accessDenied("only the comment author or task creator can delete this comment")
	ErrTemplateAccessDenied   = accessDenied("you do not have access to this template")
	ErrNotTemplateOwner       = accessDenied("only the template owner can perform this action")
	ErrAttachmentDeleteDenied = accessDenied("only the uploader or task creator can delete this attachment")

	ErrTitleRequired          = invalid("title is required")
	ErrInvalidStatus          = invalid("status must be one of todo, in_progress, completed, archived")
	ErrInvalidPriority        = invalid("priority must be one of low, medium, high, urgent")
	ErrInvalidAssignee        = invalid("assignee does not exist")
	ErrContentRequired        = invalid("comment content is required")
	ErrActivityImmutable      = invalid("activity entries cannot be modified")
	ErrTemplateNameRequired   = invalid("template name is required")
	ErrTemplateTitleRequired  = invalid("template title is required")
	ErrSearchQueryRequired    = invalid("search query is required")
	ErrNoFilesProvided        = invalid("no files uploaded")
	ErrTooManyFiles           = invalid("too many files in one upload")
	ErrInvalidEmail           = invalid("email address is invalid")
	ErrWeakPassword           = invalid("password must be at least 8 characters and contain upper case, lower case and a digit")
	ErrNameRequired           = invalid("first name and last name are required")
	ErrInvalidCredentials     = invalid("invalid email or password")
	ErrAIServiceNotConfigured = invalid("AI service is not configured")
	ErrAINoTasksGenerated     = invalid("AI did not generate any tasks")
	ErrAINoValidTasks         = invalid("no valid tasks could be created from AI output")
	ErrGenerateTextRequired   = invalid("text is required")

	ErrEmailTaken = conflict("email already registered")
)
