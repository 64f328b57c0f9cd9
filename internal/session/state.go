package session

// State names the driver's position in the portal's wizard. Transitions are
// strictly forward; any failure lands in StateRejected and tears the
// session down.
type State string

const (
	StateStart                 State = "start"
	StateSearchCriteriaEntered State = "search_criteria_entered"
	StateResultsParsed         State = "results_parsed"
	StateSlotClaimed           State = "slot_claimed"
	StateConsentAccepted       State = "consent_accepted"
	StatePatientInfoSubmitted  State = "patient_info_submitted"
	StateContactInfoSubmitted  State = "contact_info_submitted"
	StateDemographicsSubmitted State = "demographics_submitted"
	StatePaymentMethodSelected State = "payment_method_selected"
	StateTimeSlotSelected      State = "time_slot_selected"
	StateFollowUpAnswered      State = "follow_up_answered"
	StateConfirmationAwaited   State = "confirmation_awaited"
	StateConfirmed             State = "confirmed"
	StateRejected              State = "rejected"
)
