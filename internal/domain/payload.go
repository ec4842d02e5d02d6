package domain

import "time"

// DebitPayload is the gateway-bound representation of one debit. The field
// set and JSON keys follow the Payliance eCheck debit API. A payload is
// built once per gateway call and never mutated afterwards.
type DebitPayload struct {
	UniqueTranID               string  `json:"uniqueTranId"`
	Routing                    string  `json:"routing"`
	AccountNumber              string  `json:"accountNumber"`
	CheckAmount                float64 `json:"checkAmount"`
	SECCode                    string  `json:"secCode"`
	POSTransactionDate         string  `json:"posTransactionDate"`
	POSTerminalID              string  `json:"posTerminalId"`
	POSTransactionSerialNumber string  `json:"posTransactionSerialNumber"`
	POSAuthorizationCode       string  `json:"posAuthorizationCode"`
	LastName                   string  `json:"lastName"`
	FirstName                  string  `json:"firstName"`
	Address1                   string  `json:"address1"`
	City                       string  `json:"city"`
	State                      string  `json:"state"`
	Zip                        string  `json:"zip"`
	Phone                      string  `json:"phone"`
	CheckDate                  string  `json:"checkDate"`
	CustomDescriptor           string  `json:"customDescriptor"`
	CheckNumber                string  `json:"checkNumber"`
	POSCardTransactionTypeCode string  `json:"posCardTransactionTypeCode"`
	POSTerminalLocationAddress string  `json:"posTerminalLocationAddress"`
	POSTerminalCity            string  `json:"posTerminalCity"`
	POSTerminalState           string  `json:"posTerminalState"`
	POSReferenceInfo1          string  `json:"posReferenceInfo1"`
	POSReferenceInfo2          string  `json:"posReferenceInfo2"`
	OriginalTranID             string  `json:"originalTranId"`
	AccountType                string  `json:"accountType"`
	CompanyName                string  `json:"companyName"`
	Address2                   string  `json:"address2"`
	Opt1                       string  `json:"opt1"`
	Opt2                       string  `json:"opt2"`
	Opt3                       string  `json:"opt3"`
	Opt4                       string  `json:"opt4"`
	Opt5                       string  `json:"opt5"`
	Opt6                       string  `json:"opt6"`
	MICRData                   string  `json:"micrData"`
	WebType                    string  `json:"webType"`
	OrigSECCode                string  `json:"origSecCode"`
	ImageF                     string  `json:"imageF"`
	ImageB                     string  `json:"imageB"`
	IsSameDay                  bool    `json:"isSameDay"`
	FutureDate                 string  `json:"futureDate"`
	MicroEntry                 bool    `json:"microEntry"`
	ConvenienceFee             bool    `json:"convenienceFee"`
	ConvenienceFeeAmount       float64 `json:"convenienceFeeAmount"`
}

// BuildDebitPayload assembles the gateway payload for a validated request.
// When a transaction record is available it supplies the amount and the
// customer and merchant details; without one the payload carries the
// request-level fields only.
func BuildDebitPayload(req TransactionRequest, record *TransactionRecord) DebitPayload {
	stamp := time.Now().UTC()
	if record != nil && !record.Stamp.IsZero() {
		stamp = record.Stamp.UTC()
	}
	transactionDate := stamp.Format(time.RFC3339)

	payload := DebitPayload{
		UniqueTranID:               req.TransactionID,
		Routing:                    req.RoutingNumber,
		AccountNumber:              req.AccountNumber,
		SECCode:                    req.SECCode,
		AccountType:                req.AccountType,
		POSTransactionDate:         transactionDate,
		CheckDate:                  transactionDate,
		POSCardTransactionTypeCode: "01",
		POSReferenceInfo2:          "00",
	}

	if record == nil {
		return payload
	}

	payload.CheckAmount = record.TotalAmount.InexactFloat64()
	if record.ACHTransType != "" {
		payload.SECCode = record.ACHTransType
	}
	payload.POSTerminalID = record.TerminalID
	payload.POSTransactionSerialNumber = record.SerialNumber
	payload.POSAuthorizationCode = record.ApprovalCode
	payload.LastName = record.LastName
	payload.FirstName = record.FirstName
	payload.Address1 = record.Address1
	payload.Address2 = record.Address2
	payload.City = record.City
	payload.State = record.State
	payload.Zip = record.Zip
	payload.Phone = record.HomePhone
	if payload.Phone == "" {
		payload.Phone = record.MobilePhone
	}
	payload.CustomDescriptor = record.ACHStatementID
	payload.POSTerminalLocationAddress = record.MerchantAddress
	payload.POSTerminalCity = record.MerchantCity
	payload.POSTerminalState = record.MerchantState
	payload.POSReferenceInfo1 = record.ConsumerID

	return payload
}
