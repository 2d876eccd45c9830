package feed

import "strings"

// Kind identifies one of the servicer's recognized extract types.
type Kind string

const (
	KindLoanData         Kind = "loan_data"
	KindForeclosureData  Kind = "foreclosure_data"
	KindBankruptcyData   Kind = "bankruptcy_data"
	KindCommentData      Kind = "comment_data"
	KindPayHistory       Kind = "pay_history"
	KindTransactionData  Kind = "transaction_data"
	KindARMData          Kind = "arm_data"
	KindEOMTrialBalance  Kind = "eom_trial_balance"
	KindEOMTrustTracking Kind = "eom_trust_tracking"
)

// Spec describes everything the pipeline needs to know about one kind:
// how to recognize its files, where its rows land, and which columns
// form the natural key beneath as_of_date.
type Spec struct {
	Kind Kind
	// Aliases are lowercase filename substrings. The servicer renames
	// extracts occasionally; new names go here, nowhere else.
	Aliases []string
	Table   string
	// Columns is the full destination column list, insert order.
	Columns []string
	// KeyColumns is the natural key beyond as_of_date. Every key column
	// must also appear in Columns.
	KeyColumns []string
	// HeaderMap maps canonical (normalized) source headers to destination
	// columns. Identity entries for Columns are implied and added by init.
	HeaderMap map[string]string
}

// Specs is the ordered lookup table for every supported kind. Order matters
// for classification: first alias match wins.
var Specs = []*Spec{
	{
		Kind:    KindLoanData,
		Aliases: []string{"loandata", "loan_data", "servicingdata"},
		Table:   "raw_loan_data",
		Columns: []string{
			"loan_id", "investor_loan_id", "borrower_name", "property_street",
			"property_city", "property_state", "property_zip", "loan_type",
			"lien_position", "interest_rate", "principal_balance", "escrow_balance",
			"payment_amount", "next_due_date", "last_payment_date",
			"origination_date", "maturity_date", "loan_status",
		},
		KeyColumns: []string{"loan_id"},
		HeaderMap: map[string]string{
			"loan_number":      "loan_id",
			"loan_no":          "loan_id",
			"account_number":   "loan_id",
			"investor_loan_no": "investor_loan_id",
			"borrower":         "borrower_name",
			"mortgagor_name":   "borrower_name",
			"street":           "property_street",
			"city":             "property_city",
			"state":            "property_state",
			"zip":              "property_zip",
			"zip_code":         "property_zip",
			"note_rate":        "interest_rate",
			"current_upb":      "principal_balance",
			"unpaid_principal_balance": "principal_balance",
			"p_i_payment":              "payment_amount",
			"next_due":                 "next_due_date",
			"last_paid_date":           "last_payment_date",
			"status":                   "loan_status",
		},
	},
	{
		Kind:    KindForeclosureData,
		Aliases: []string{"foreclosuredata", "foreclosure_data", "fcdata"},
		Table:   "raw_foreclosure_data",
		Columns: []string{
			"loan_id", "fc_status", "fc_step", "attorney_name", "referral_date",
			"first_legal_date", "judgment_date", "sale_scheduled_date",
			"sale_date", "postponed_date", "bid_amount", "remarks",
		},
		KeyColumns: []string{"loan_id"},
		HeaderMap: map[string]string{
			"loan_number":         "loan_id",
			"loan_no":             "loan_id",
			"foreclosure_status":  "fc_status",
			"foreclosure_step":    "fc_step",
			"attorney":            "attorney_name",
			"referred_date":       "referral_date",
			"scheduled_sale_date": "sale_scheduled_date",
			"comments":            "remarks",
		},
	},
	{
		Kind:    KindBankruptcyData,
		Aliases: []string{"bankruptcydata", "bankruptcy_data", "bkdata"},
		Table:   "raw_bankruptcy_data",
		Columns: []string{
			"loan_id", "case_number", "chapter", "filed_date", "bk_status",
			"attorney_name", "motion_for_relief_date", "discharge_date",
			"dismissal_date", "poc_filed_date", "remarks",
		},
		KeyColumns: []string{"loan_id"},
		HeaderMap: map[string]string{
			"loan_number":        "loan_id",
			"loan_no":            "loan_id",
			"bankruptcy_case_no": "case_number",
			"case_no":            "case_number",
			"bk_chapter":         "chapter",
			"date_filed":         "filed_date",
			"status":             "bk_status",
			"attorney":           "attorney_name",
			"mfr_date":           "motion_for_relief_date",
			"comments":           "remarks",
		},
	},
	{
		Kind:    KindCommentData,
		Aliases: []string{"commentdata", "comment_data", "comments"},
		Table:   "raw_comment_data",
		Columns: []string{
			"loan_id", "comment_date", "comment_code", "comment_text", "created_by",
		},
		KeyColumns: []string{"loan_id", "comment_date"},
		HeaderMap: map[string]string{
			"loan_number":  "loan_id",
			"loan_no":      "loan_id",
			"date":         "comment_date",
			"code":         "comment_code",
			"comment":      "comment_text",
			"text":         "comment_text",
			"user":         "created_by",
			"entered_by":   "created_by",
			"comment_user": "created_by",
		},
	},
	{
		Kind:    KindPayHistory,
		Aliases: []string{"payhistory", "pay_history", "paymenthistory"},
		Table:   "raw_pay_history",
		Columns: []string{
			"loan_id", "transaction_date", "due_date", "amount_received",
			"principal_applied", "interest_applied", "escrow_applied",
			"late_charge_applied", "suspense_applied", "balance_after",
		},
		KeyColumns: []string{"loan_id", "transaction_date"},
		HeaderMap: map[string]string{
			"loan_number":    "loan_id",
			"loan_no":        "loan_id",
			"tran_date":      "transaction_date",
			"payment_date":   "transaction_date",
			"date_received":  "transaction_date",
			"total_received": "amount_received",
			"principal":      "principal_applied",
			"interest":       "interest_applied",
			"escrow":         "escrow_applied",
			"late_charge":    "late_charge_applied",
			"suspense":       "suspense_applied",
			"ending_balance": "balance_after",
		},
	},
	{
		Kind:    KindTransactionData,
		Aliases: []string{"transactiondata", "transaction_data", "trandata"},
		Table:   "raw_transaction_data",
		Columns: []string{
			"loan_id", "transaction_date", "transaction_code",
			"transaction_description", "transaction_amount",
			"principal_amount", "interest_amount", "escrow_amount",
		},
		KeyColumns: []string{"loan_id", "transaction_date"},
		HeaderMap: map[string]string{
			"loan_number": "loan_id",
			"loan_no":     "loan_id",
			"tran_date":   "transaction_date",
			"tran_code":   "transaction_code",
			"tran_desc":   "transaction_description",
			"description": "transaction_description",
			"tran_amount": "transaction_amount",
			"amount":      "transaction_amount",
			"principal":   "principal_amount",
			"interest":    "interest_amount",
			"escrow":      "escrow_amount",
		},
	},
	{
		Kind:    KindARMData,
		Aliases: []string{"armdata", "arm_data", "armdetail"},
		Table:   "raw_arm_data",
		Columns: []string{
			"loan_id", "index_name", "index_value", "margin", "current_rate",
			"next_rate_change_date", "next_payment_change_date",
			"periodic_rate_cap", "lifetime_rate_cap", "lifetime_rate_floor",
		},
		KeyColumns: []string{"loan_id"},
		HeaderMap: map[string]string{
			"loan_number":         "loan_id",
			"loan_no":             "loan_id",
			"arm_index":           "index_name",
			"index":               "index_name",
			"current_index_value": "index_value",
			"note_rate":           "current_rate",
			"rate_change_date":    "next_rate_change_date",
			"payment_change_date": "next_payment_change_date",
			"rate_cap":            "periodic_rate_cap",
			"life_cap":            "lifetime_rate_cap",
			"life_floor":          "lifetime_rate_floor",
		},
	},
	{
		Kind:    KindEOMTrialBalance,
		Aliases: []string{"trialbalancedata", "trial_balance", "trialbalance"},
		Table:   "raw_eom_trial_balance",
		Columns: []string{
			"loan_id", "investor_loan_id", "principal_balance", "escrow_balance",
			"suspense_balance", "unapplied_balance", "interest_rate",
			"next_due_date", "last_payment_date", "loan_status",
		},
		KeyColumns: []string{"loan_id"},
		HeaderMap: map[string]string{
			"loan_number":              "loan_id",
			"loan_no":                  "loan_id",
			"investor_loan_no":         "investor_loan_id",
			"current_upb":              "principal_balance",
			"unpaid_principal_balance": "principal_balance",
			"escrow":                   "escrow_balance",
			"suspense":                 "suspense_balance",
			"unapplied":                "unapplied_balance",
			"note_rate":                "interest_rate",
			"next_due":                 "next_due_date",
			"last_paid_date":           "last_payment_date",
			"status":                   "loan_status",
		},
	},
	{
		Kind:    KindEOMTrustTracking,
		Aliases: []string{"trusttrackingdata", "trust_tracking", "trusttracking"},
		Table:   "raw_eom_trust_tracking",
		Columns: []string{
			"loan_id", "trust_account", "beginning_balance", "deposits",
			"disbursements", "ending_balance", "tracking_code",
		},
		KeyColumns: []string{"loan_id"},
		HeaderMap: map[string]string{
			"loan_number":    "loan_id",
			"loan_no":        "loan_id",
			"account":        "trust_account",
			"trust_acct":     "trust_account",
			"begin_balance":  "beginning_balance",
			"total_deposits": "deposits",
			"total_disb":     "disbursements",
			"end_balance":    "ending_balance",
		},
	},
}

var specsByKind = map[Kind]*Spec{}

func init() {
	for _, s := range Specs {
		// every destination column maps to itself
		for _, col := range s.Columns {
			if _, ok := s.HeaderMap[col]; !ok {
				s.HeaderMap[col] = col
			}
		}
		specsByKind[s.Kind] = s
	}
}

// SpecFor returns the spec for a kind, or nil when the kind is unknown.
func SpecFor(k Kind) *Spec {
	return specsByKind[k]
}

// KindFromName resolves a CLI kind name (the Kind value itself or one of its
// filename aliases) to a Kind. Returns false when nothing matches.
func KindFromName(name string) (Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	if s, ok := specsByKind[Kind(name)]; ok {
		return s.Kind, true
	}
	for _, s := range Specs {
		for _, a := range s.Aliases {
			if a == name {
				return s.Kind, true
			}
		}
	}
	return "", false
}

// AllKinds returns every supported kind in declaration order.
func AllKinds() []Kind {
	out := make([]Kind, 0, len(Specs))
	for _, s := range Specs {
		out = append(out, s.Kind)
	}
	return out
}
