package models

// CSVHeader is the header row of the tabular output file.
var CSVHeader = []string{"ChannelName", "ChannelID", "Keyword", "Email"}

// FailedChannelName is the placeholder channel name recorded when enrichment
// fails after a tab was already opened for the handle. A placeholder row is a
// valid, permanent record; handles are never retried.
const FailedChannelName = "channel retrieval failed"

// ResultRecord is one output row. Immutable once constructed. An empty Email
// on an enriched record means the about text carried no address, which is not
// a failure.
type ResultRecord struct {
	ChannelName string
	Handle      Handle
	Keyword     string
	Email       string
}

// Placeholder builds the failure-placeholder record for a handle.
func Placeholder(handle Handle, keyword string) ResultRecord {
	return ResultRecord{
		ChannelName: FailedChannelName,
		Handle:      handle,
		Keyword:     keyword,
	}
}

// Row renders the record in CSV column order.
func (r ResultRecord) Row() []string {
	return []string{r.ChannelName, string(r.Handle), r.Keyword, r.Email}
}
