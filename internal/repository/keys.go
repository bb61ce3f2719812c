package repository

import (
	"strconv"
	"strings"
)

// Key namespaces
const (
	prefixUser          = "user:"
	prefixThreadForward = "thread:user:"
	prefixThreadReverse = "thread:id:"
	prefixTicket        = "ticket:"
	prefixBatch         = "batch:"
	keyVerifyTTL        = "config:verify_ttl"
)

func userKey(userID int64) string {
	return prefixUser + strconv.FormatInt(userID, 10)
}

func forwardKey(userID int64) string {
	return prefixThreadForward + strconv.FormatInt(userID, 10)
}

func reverseKey(threadID int) string {
	return prefixThreadReverse + strconv.Itoa(threadID)
}

func ticketKey(ticketID string) string {
	return prefixTicket + ticketID
}

func batchKey(groupID string) string {
	return prefixBatch + groupID
}

// userIDFromForwardKey extracts the user id from a forward binding key
func userIDFromForwardKey(key string) (int64, bool) {
	raw, ok := strings.CutPrefix(key, prefixThreadForward)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
