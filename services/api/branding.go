package apisvc

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/schooladmin/core/school"
)

// Theme is served from the cache while fresh.
func (c *Client) Theme(ctx context.Context, schoolID string) (school.Theme, error) {
	if c.themes != nil {
		if theme, ok := c.themes.Get(schoolID); ok {
			return theme.(school.Theme), nil
		}
	}

	body, err := c.do(ctx, request{
		method:   http.MethodGet,
		endpoint: "/api/schools/{id}/theme",
		path:     schoolPath(schoolID, "theme"),
	})
	if err != nil {
		return school.Theme{}, err
	}
	var theme school.Theme
	if err := decodeOne(body, "theme", &theme); err != nil {
		return school.Theme{}, err
	}
	if c.themes != nil {
		c.themes.SetDefault(schoolID, theme)
	}
	return theme, nil
}

func (c *Client) UpdateTheme(ctx context.Context, schoolID string, theme school.Theme) (school.Theme, error) {
	if c.themes != nil {
		c.themes.Delete(schoolID)
	}
	body, err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "/api/schools/{id}/theme",
		path:     schoolPath(schoolID, "theme"),
		json:     theme,
	})
	if err != nil {
		return school.Theme{}, err
	}

	saved := theme
	if err := decodeOne(body, "theme", &saved); err != nil {
		return school.Theme{}, err
	}
	if c.themes != nil {
		c.themes.SetDefault(schoolID, saved)
	}
	return saved, nil
}

// UploadBrandingAsset sends the file as multipart/form-data with its asset_type.
func (c *Client) UploadBrandingAsset(ctx context.Context, schoolID string, asset school.BrandingAsset) (school.BrandingResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", asset.Filename)
	if err != nil {
		return school.BrandingResult{}, errors.Wrap(err, "building upload")
	}
	if _, err := io.Copy(part, asset.Reader); err != nil {
		return school.BrandingResult{}, errors.Wrapf(err, "reading %s", asset.Filename)
	}
	if err := mw.WriteField("asset_type", asset.AssetType); err != nil {
		return school.BrandingResult{}, errors.Wrap(err, "building upload")
	}
	if err := mw.Close(); err != nil {
		return school.BrandingResult{}, errors.Wrap(err, "building upload")
	}

	body, err := c.do(ctx, request{
		method:   http.MethodPost,
		endpoint: "/api/schools/{id}/branding/upload",
		path:     schoolPath(schoolID, "branding", "upload"),
		body:     &buf,
		ctype:    mw.FormDataContentType(),
	})
	if err != nil {
		return school.BrandingResult{}, err
	}
	res := school.BrandingResult{AssetType: asset.AssetType}
	err = decodeOne(body, "", &res)
	return res, err
}
