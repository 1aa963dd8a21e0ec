package email

const (
	subjectInterventionScheduled = "Votre intervention est planifiée"
	subjectInterventionStatusFmt = "Mise à jour de votre intervention : %s"
	subjectInterventionReminder  = "Rappel : intervention prévue demain"
	subjectInvoiceIssuedFmt      = "Votre facture %s"
	subjectPaymentReceiptFmt     = "Confirmation de paiement : facture %s"
)
