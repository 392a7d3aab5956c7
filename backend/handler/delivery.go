package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/grantdesk/applicants/backend/service"
)

// deliver streams a document as an attachment. Filenames come from service.AttachmentFilename
// and only contain characters that are safe inside a quoted header value.
func deliver(c *gin.Context, doc *service.Document) {
	filename := doc.Filename
	if filename == "" {
		filename = "document" + doc.Format.Ext()
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Length", strconv.Itoa(len(doc.Content)))
	c.Header("X-Document-Format", string(doc.Format))
	c.Header("X-Document-Source", doc.Source)
	c.Data(http.StatusOK, doc.Format.MIMEType(), doc.Content)
}
