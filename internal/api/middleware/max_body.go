package middleware

import (
	"mime"
	"net/http"

	"github.com/cloo-solutions/resumatch/internal/api"
)

// DefaultJSONBodyBytes bounds non-upload bodies such as a job description.
const DefaultJSONBodyBytes int64 = 1 << 20

// LimitBody caps request bodies. Multipart resume uploads may use up to uploadLimit;
// every other body is held to the smaller of jsonLimit and uploadLimit.
// A non-positive limit disables that cap.
func LimitBody(uploadLimit, jsonLimit int64) func(http.Handler) http.Handler {
	if uploadLimit > 0 && (jsonLimit <= 0 || jsonLimit > uploadLimit) {
		jsonLimit = uploadLimit
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit, message := jsonLimit, "request body too large"
			if isMultipart(r) {
				limit, message = uploadLimit, "resume exceeds the upload size limit"
			}
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, message)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
