package core

// RequisitionStatus is the lifecycle state of a Requisition.
type RequisitionStatus string

const (
	RequisitionPending   RequisitionStatus = "PENDING"
	RequisitionApproved  RequisitionStatus = "APPROVED"
	RequisitionDenied    RequisitionStatus = "DENIED"
	RequisitionPicked    RequisitionStatus = "PICKED"
	RequisitionCompleted RequisitionStatus = "COMPLETED"
	RequisitionCancelled RequisitionStatus = "CANCELLED"
)

// CountStatus is the lifecycle state of a CountSession.
type CountStatus string

const (
	CountInProgress CountStatus = "IN_PROGRESS"
	CountCompleted  CountStatus = "COMPLETED"
	CountApproved   CountStatus = "APPROVED"
	CountCancelled  CountStatus = "CANCELLED"
)

// PurchaseRequestStatus is the lifecycle state of a PurchaseRequest.
type PurchaseRequestStatus string

const (
	PurchaseDraft     PurchaseRequestStatus = "DRAFT"
	PurchaseSubmitted PurchaseRequestStatus = "SUBMITTED"
	PurchaseApproved  PurchaseRequestStatus = "APPROVED"
	PurchaseDenied    PurchaseRequestStatus = "DENIED"
	PurchaseOrdered   PurchaseRequestStatus = "ORDERED"
	PurchaseReceived  PurchaseRequestStatus = "RECEIVED"
	PurchaseCancelled PurchaseRequestStatus = "CANCELLED"
)

// WorkflowOp names a status-changing (or status-guarded) workflow operation.
type WorkflowOp string

const (
	OpApprove       WorkflowOp = "approve"
	OpDeny          WorkflowOp = "deny"
	OpPick          WorkflowOp = "pick"
	OpComplete      WorkflowOp = "complete"
	OpCancel        WorkflowOp = "cancel"
	OpAddLine       WorkflowOp = "add_line"
	OpApplyVariance WorkflowOp = "apply_variance"
	OpSubmit        WorkflowOp = "submit"
	OpOrder         WorkflowOp = "order"
	OpReceive       WorkflowOp = "receive"
)

// pastTense is used in InvalidStateError messages ("cannot be picked").
var pastTense = map[WorkflowOp]string{
	OpApprove:       "approved",
	OpDeny:          "denied",
	OpPick:          "picked",
	OpComplete:      "completed",
	OpCancel:        "cancelled",
	OpAddLine:       "counted",
	OpApplyVariance: "applied",
	OpSubmit:        "submitted",
	OpOrder:         "ordered",
	OpReceive:       "received",
}

type transition[S ~string] struct {
	from []S
	to   S
}

// transitionTable is the single source of truth for a workflow's legal moves.
// Any (status, op) pair absent from the table is illegal.
type transitionTable[S ~string] map[WorkflowOp]transition[S]

var requisitionTransitions = transitionTable[RequisitionStatus]{
	OpApprove:  {from: []RequisitionStatus{RequisitionPending}, to: RequisitionApproved},
	OpDeny:     {from: []RequisitionStatus{RequisitionPending}, to: RequisitionDenied},
	OpPick:     {from: []RequisitionStatus{RequisitionPending, RequisitionApproved}, to: RequisitionPicked},
	OpComplete: {from: []RequisitionStatus{RequisitionPicked}, to: RequisitionCompleted},
	OpCancel:   {from: []RequisitionStatus{RequisitionPending, RequisitionApproved}, to: RequisitionCancelled},
}

var countTransitions = transitionTable[CountStatus]{
	OpAddLine:       {from: []CountStatus{CountInProgress}, to: CountInProgress},
	OpComplete:      {from: []CountStatus{CountInProgress}, to: CountCompleted},
	OpCancel:        {from: []CountStatus{CountInProgress}, to: CountCancelled},
	OpApplyVariance: {from: []CountStatus{CountCompleted}, to: CountApproved},
}

var purchaseTransitions = transitionTable[PurchaseRequestStatus]{
	OpSubmit:  {from: []PurchaseRequestStatus{PurchaseDraft}, to: PurchaseSubmitted},
	OpApprove: {from: []PurchaseRequestStatus{PurchaseDraft, PurchaseSubmitted}, to: PurchaseApproved},
	OpDeny:    {from: []PurchaseRequestStatus{PurchaseDraft, PurchaseSubmitted}, to: PurchaseDenied},
	OpCancel:  {from: []PurchaseRequestStatus{PurchaseDraft, PurchaseSubmitted, PurchaseApproved}, to: PurchaseCancelled},
	OpOrder:   {from: []PurchaseRequestStatus{PurchaseApproved}, to: PurchaseOrdered},
	OpReceive: {from: []PurchaseRequestStatus{PurchaseOrdered}, to: PurchaseReceived},
}

// next returns the target status for op from current, or an InvalidStateError.
func (t transitionTable[S]) next(entity string, id int, op WorkflowOp, current S) (S, error) {
	rule, ok := t[op]
	if ok {
		for _, from := range rule.from {
			if from == current {
				return rule.to, nil
			}
		}
	}
	required := make([]string, 0, len(rule.from))
	for _, from := range rule.from {
		required = append(required, string(from))
	}
	verb := pastTense[op]
	if verb == "" {
		verb = string(op)
	}
	var zero S
	return zero, &InvalidStateError{Entity: entity, ID: id, Op: verb, Current: string(current), Required: required}
}

// Allows reports whether op is legal from s.
func (s RequisitionStatus) Allows(op WorkflowOp) bool {
	_, err := requisitionTransitions.next("requisition", 0, op, s)
	return err == nil
}

// Allows reports whether op is legal from s.
func (s CountStatus) Allows(op WorkflowOp) bool {
	_, err := countTransitions.next("count session", 0, op, s)
	return err == nil
}

// Allows reports whether op is legal from s.
func (s PurchaseRequestStatus) Allows(op WorkflowOp) bool {
	_, err := purchaseTransitions.next("purchase request", 0, op, s)
	return err == nil
}
