// Package mocks provides centralized mock implementations for testing.
//
// The mocks cover the collaborators the engine consumes but does not own:
// the email sender, the realtime pusher and the message bus publisher. They
// are built on testify/mock, so tests set expectations with On and verify
// them with AssertExpectations:
//
//	sender := &mocks.MockEmailSender{}
//	sender.On("SendNotificationEmail", mock.Anything, "a@example.com", mock.Anything, mock.Anything).
//	    Return(errors.New("smtp down"))
//
// The record store has no mock; tests use the in-memory store in
// internal/store/memstore instead.
package mocks
