package services

import (
	"context"
	"fmt"

	"eventhub/internal/domain"
)

func admissionNotice(attendee *domain.User, event *domain.Event, status domain.RSVPStatus) domain.NotificationRequest {
	verb := "confirmed"
	typ := domain.NotificationRSVPConfirmed
	if status == domain.RSVPStatusWaitlist {
		verb = "joined waitlist for"
		typ = domain.NotificationRSVPWaitlist
	}
	return domain.NotificationRequest{
		RecipientID:    event.OrganizerID,
		Message:        fmt.Sprintf("%s has %s your event: %s", attendee.DisplayName(), verb, event.Title),
		Type:           typ,
		RelatedEventID: event.ID,
	}
}

func leftNotice(attendee *domain.User, event *domain.Event) domain.NotificationRequest {
	return domain.NotificationRequest{
		RecipientID:    event.OrganizerID,
		Message:        fmt.Sprintf("%s has left your event: %s", attendee.DisplayName(), event.Title),
		Type:           domain.NotificationEventUpdate,
		RelatedEventID: event.ID,
	}
}

func promotedNotice(userID string, event *domain.Event) domain.NotificationRequest {
	return domain.NotificationRequest{
		RecipientID:    userID,
		Message:        "You've been moved from waitlist to confirmed for: " + event.Title,
		Type:           domain.NotificationWaitlistPromoted,
		RelatedEventID: event.ID,
	}
}

func updatedNotice(userID string, event *domain.Event) domain.NotificationRequest {
	return domain.NotificationRequest{
		RecipientID:    userID,
		Message:        "Event updated: " + event.Title + " - Check the event for new details!",
		Type:           domain.NotificationEventUpdate,
		RelatedEventID: event.ID,
	}
}

func cancelledNotice(userID string, event *domain.Event) domain.NotificationRequest {
	return domain.NotificationRequest{
		RecipientID:    userID,
		Message:        "Event cancelled: " + event.Title,
		Type:           domain.NotificationEventCancelled,
		RelatedEventID: event.ID,
	}
}

// emitAll hands requests to the emitter. Delivery is the emitter's concern.
func emitAll(ctx context.Context, emitter domain.NotificationEmitter, reqs ...domain.NotificationRequest) {
	if emitter == nil {
		return
	}
	for _, req := range reqs {
		emitter.Enqueue(ctx, req)
	}
}
