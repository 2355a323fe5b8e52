package mongo

const (
	store        = "skriba"
	jobTable     = "jobs"
	segmentTable = "segments"
	wordTable    = "words"
	emailTable   = "emailLock"
)

var indexData = []IndexData{
	newIndexData(jobTable, "ID", true),
	newIndexData(segmentTable, "jobID", false),
	newIndexData(wordTable, "jobID", false),
	newIndexData(emailTable, "ID", false)}
