package openstack

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gophercloud/gophercloud/v2"

	"github.com/openflighthpc/cluster-builder/internal/handler"
)

// Credentials authenticate against keystone. They come in three shapes:
//   - user_id, password and project_id
//   - username, password, project_id and user_domain_name
//   - username, password, project_name, project_domain_name and user_domain_name
type Credentials struct {
	AuthURL           string `json:"auth_url" form:"auth_url" binding:"required,url"`
	UserID            string `json:"user_id,omitempty" form:"user_id"`
	Username          string `json:"username,omitempty" form:"username"`
	Password          string `json:"password" form:"password" binding:"required"`
	ProjectID         string `json:"project_id,omitempty" form:"project_id"`
	ProjectName       string `json:"project_name,omitempty" form:"project_name"`
	ProjectDomainName string `json:"project_domain_name,omitempty" form:"project_domain_name"`
	UserDomainName    string `json:"user_domain_name,omitempty" form:"user_domain_name"`
}

// RegisterValidation makes gin's validation engine reject credentials not matching any of the
// supported shapes.
func RegisterValidation() error {
	return handler.RegisterStructValidation(validateCredentials, Credentials{})
}

func validateCredentials(sl validator.StructLevel) {
	c := sl.Current().Interface().(Credentials)

	switch {
	case c.UserID != "":
		if c.ProjectID == "" {
			sl.ReportError(c.ProjectID, "project_id", "ProjectID", "required", "")
		}
	case c.Username != "":
		if c.UserDomainName == "" {
			sl.ReportError(c.UserDomainName, "user_domain_name", "UserDomainName", "required", "")
		}
		if c.ProjectID == "" && c.ProjectName == "" {
			sl.ReportError(c.ProjectID, "project_id", "ProjectID", "required", "")
		}
		if c.ProjectID == "" && c.ProjectName != "" && c.ProjectDomainName == "" {
			sl.ReportError(c.ProjectDomainName, "project_domain_name", "ProjectDomainName", "required", "")
		}
	default:
		sl.ReportError(c.Username, "username", "Username", "required", "")
	}
}

func (c Credentials) authOptions() gophercloud.AuthOptions {
	opts := gophercloud.AuthOptions{
		IdentityEndpoint: c.AuthURL,
		UserID:           c.UserID,
		Username:         c.Username,
		Password:         c.Password,
		AllowReauth:      true,
	}
	// keystone identifies users by id alone
	if c.UserID == "" {
		opts.DomainName = c.UserDomainName
	}

	if c.ProjectID != "" {
		opts.Scope = &gophercloud.AuthScope{ProjectID: c.ProjectID}
	} else {
		opts.Scope = &gophercloud.AuthScope{ProjectName: c.ProjectName, DomainName: c.ProjectDomainName}
	}
	return opts
}

// LogValue omits the password.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("auth_url", c.AuthURL),
		slog.String("user_id", c.UserID),
		slog.String("username", c.Username),
		slog.String("project_id", c.ProjectID),
		slog.String("project_name", c.ProjectName),
	)
}
