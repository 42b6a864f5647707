package proxy

import (
	"net/http"

	"github.com/go-logr/logr"
)

const proxySuccessBody = `<?xml version="1.0"?>
<casClient:proxySuccess xmlns:casClient="http://www.yale.edu/tp/casClient" />`

// ReceptorHandler accepts the CAS server's proxy callback. The server
// calls the registered pgtUrl with pgtIou and pgtId query parameters;
// the pair is stored so a later validation can exchange the IOU for the
// real PGT. Requests without both parameters are the server's initial
// reachability probe and are answered without storing anything.
func ReceptorHandler(storage Storage, logger logr.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		iou := r.URL.Query().Get("pgtIou")
		pgt := r.URL.Query().Get("pgtId")

		if iou != "" && pgt != "" {
			if storage == nil {
				logger.V(1).Info("proxy callback received but no storage is configured")
			} else if err := storage.Save(r.Context(), iou, pgt); err != nil {
				logger.Error(err, "unable to store proxy granting ticket")
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
		}

		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(proxySuccessBody))
	})
}
