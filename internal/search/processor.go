package search

import (
	"unicode/utf8"

	"github.com/hyperjump/ajwiba/internal/models"
)

// MinQueryLength is the shortest non-empty query that reaches a backend.
const MinQueryLength = 2

// User-facing messages attached to empty responses.
const (
	MsgQueryTooShort     = "يجب أن يتكون البحث من حرفين على الأقل"
	MsgNothingToSearch   = "اكتب كلمة للبحث أو اختر وسمًا أو مستوى صعوبة"
	MsgNoResults         = "لا توجد نتائج مطابقة"
	MsgSearchUnavailable = "البحث غير متاح مؤقتًا، حاول مرة أخرى لاحقًا"
	MsgInternalError     = "حدث خطأ غير متوقع"
	MsgTooManyRequests   = "طلبات كثيرة، انتظر قليلًا ثم أعد المحاولة"
)

// ProcessQuery validates and applies defaults to the search query, then applies the input
// guards. A non-empty guard message means the query must not reach a backend; it is not an error.
func ProcessQuery(query *models.SearchQuery, defaultLimit, maxLimit int) (string, error) {
	if err := query.Validate(defaultLimit, maxLimit); err != nil {
		return "", err
	}
	n := utf8.RuneCountInString(query.Query)
	switch {
	case n > 0 && n < MinQueryLength:
		return MsgQueryTooShort, nil
	case n == 0 && !query.HasFilters():
		return MsgNothingToSearch, nil
	}
	return "", nil
}
