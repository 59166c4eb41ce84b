package transfer

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineGroup is the read-only roll-up of all lines that represent one logical
// item. Serial items are stored as one line per unit; grouping lets the
// operator see "Widget A: 3/5 scanned" instead of five separate 1/1 rows.
type LineGroup struct {
	GroupKey         string
	ItemCode         string
	Description      string
	ItemType         ItemType
	LineCount        int
	ExpectedQuantity decimal.Decimal
	ScannedQuantity  decimal.Decimal
	Status           CompletionStatus
	MemberIDs        []uuid.UUID
}

// GroupLines clusters lines sharing a line group ID (or, when absent, the
// same parent item code and item code) and aggregates their reconciliation
// state. Groups are returned in first-appearance order; line records are
// never mutated.
func GroupLines(items []TransferItem) []LineGroup {
	groups := make([]LineGroup, 0)
	index := make(map[string]int)

	for _, item := range items {
		key := item.groupKey()
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, LineGroup{
				GroupKey:         key,
				ItemCode:         item.ItemCode,
				Description:      item.Description,
				ItemType:         item.ItemType,
				ExpectedQuantity: decimal.Zero,
				ScannedQuantity:  decimal.Zero,
			})
		}

		g := &groups[pos]
		g.LineCount++
		g.ExpectedQuantity = g.ExpectedQuantity.Add(item.ExpectedQuantity)
		g.ScannedQuantity = g.ScannedQuantity.Add(item.ScannedQuantity)
		g.MemberIDs = append(g.MemberIDs, item.ID)
	}

	for i := range groups {
		groups[i].Status = groupStatus(items, groups[i].MemberIDs)
	}

	return groups
}

// groupStatus derives the aggregate status: completed iff every member is
// completed, partial iff any member has scanned anything, else pending.
func groupStatus(items []TransferItem, memberIDs []uuid.UUID) CompletionStatus {
	members := make(map[uuid.UUID]bool, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = true
	}

	allCompleted := true
	anyScanned := false
	for _, item := range items {
		if !members[item.ID] {
			continue
		}
		if !item.IsCompleted() {
			allCompleted = false
		}
		if item.ScannedQuantity.IsPositive() {
			anyScanned = true
		}
	}

	switch {
	case allCompleted:
		return CompletionStatusCompleted
	case anyScanned:
		return CompletionStatusPartial
	default:
		return CompletionStatusPending
	}
}
