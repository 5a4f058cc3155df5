// Package service contains the application use cases that sit between the
// HTTP layer and the engines.
//
// TaskService coordinates the reminder, overdue, recurrence and mention
// engines for operations on a single task or on the whole task set.
// NotificationService reads and acknowledges a user's in-app notifications.
//
// Services receive their collaborators through constructor injection and
// depend only on the store interfaces, never on a concrete backend. Errors
// are returned as sentinels (ErrNotStakeholder, ErrAlreadyCompleted,
// ErrNotRecurring) or wrapped in a ServiceError that names the failing
// operation; store sentinels stay reachable through errors.Is.
package service
