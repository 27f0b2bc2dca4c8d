package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/rs/xid"

	"github.com/allura/allura-web/mediastore"
	"github.com/allura/allura-web/model"
	"github.com/allura/allura-web/util"
)

// UploadVideo handler stores a project video and returns its public URL
func UploadVideo(media mediastore.Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		fh, err := c.FormFile("video")
		if err != nil {
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "No video file uploaded"})
		}
		file, err := fh.Open()
		if err != nil {
			log.Error("Cannot open uploaded video: ", err)
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "No video file uploaded"})
		}
		defer file.Close()

		mtype, err := mediastore.DetectVideo(file, fh.Size)
		switch {
		case errors.Is(err, mediastore.ErrTooLarge):
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "Video file must be 100MB or smaller"})
		case errors.Is(err, mediastore.ErrUnsupportedType):
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "Only video files are allowed"})
		case err != nil:
			log.Error("Cannot inspect uploaded video: ", err)
			return c.JSON(http.StatusBadRequest, jsonHTTPResponse{false, "Video file could not be read"})
		}

		ext := util.FileExt(fh.Filename)
		if ext == "" {
			ext = mtype.Extension()
		}
		key := fmt.Sprintf("project-videos/project-video-%s%s", xid.New().String(), ext)
		obj, err := media.Put(c.Request().Context(), key, mtype.String(), file, fh.Size)
		if err != nil {
			log.Error("Cannot store video: ", err)
			return c.JSON(http.StatusInternalServerError, jsonHTTPResponse{false, "Failed to upload video"})
		}
		log.Infof("Uploaded project video %s (%d bytes)", obj.Key, fh.Size)

		return c.JSON(http.StatusOK, model.VideoUpload{
			Success:  true,
			VideoURL: obj.URL,
			PublicID: obj.Key,
		})
	}
}
