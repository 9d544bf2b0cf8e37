package tui

import tea "github.com/charmbracelet/bubbletea"

// msgSender is the part of tea.Program the poster needs.
type msgSender interface {
	Send(msg tea.Msg)
}

// ProgramPoster delivers dispatcher replies into a running Bubbletea program.
type ProgramPoster struct {
	program msgSender
}

// NewProgramPoster creates a poster targeting the given program.
func NewProgramPoster(p msgSender) *ProgramPoster {
	return &ProgramPoster{program: p}
}

// Post implements the dispatcher's Poster contract.
func (pp *ProgramPoster) Post(conversationID, channel, text string) error {
	pp.program.Send(ReplyMsg{ConversationID: conversationID, Text: text})
	return nil
}
