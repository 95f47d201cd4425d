package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	lerrors "github.com/landingkit/lander/internal/errors"
	"github.com/landingkit/lander/internal/validation"
)

// FTPPasswordEnv overrides SiteConfig.FTP.Password when set.
const FTPPasswordEnv = "LANDER_FTP_PASSWORD"

// Keys of the site configuration document.
const (
	KeyHTMLFileName = "htmlFileName"
	KeyDomain       = "domain"
	KeyCDNURL       = "cdn_url"
	KeyGTMCode      = "gtm_code"
	KeyFTP          = "ftp"
)

// SiteConfig is the process-wide description of the landing sites.
type SiteConfig struct {
	HTMLFileName string            `yaml:"htmlFileName"`
	Domain       map[string]string `yaml:"domain"`
	CDNURL       map[string]string `yaml:"cdn_url"`
	GTMCode      map[string]string `yaml:"gtm_code"`
	FTP          FTPConfig         `yaml:"ftp"`
}

// FTPConfig holds the file-transfer credentials.
type FTPConfig struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Root     string `yaml:"root"`
}

// MissingKey names a site lacking a value for an injected key.
type MissingKey struct {
	Site string
	Key  string
}

// LoadSiteConfig reads and validates the site configuration at path.
func LoadSiteConfig(fs afero.Fs, path string) (*SiteConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, lerrors.NewInvalidConfig(path, "", fmt.Sprintf("cannot read site configuration: %v", err))
	}

	cfg, err := ParseSiteConfig(data, path)
	if err != nil {
		return nil, err
	}

	if password, ok := os.LookupEnv(FTPPasswordEnv); ok {
		cfg.FTP.Password = password
	}

	return cfg, nil
}

// ParseSiteConfig decodes and validates a site configuration document.
// Unknown top-level keys are rejected so that a misspelled key fails here
// instead of producing an empty field at render time.
func ParseSiteConfig(data []byte, source string) (*SiteConfig, error) {
	var cfg SiteConfig

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, lerrors.NewInvalidConfig(source, "", fmt.Sprintf("cannot parse site configuration: %v", err))
	}

	if err := cfg.Validate(source); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the schema: a usable output file name, at least one site
// with an absolute http(s) domain, and no per-site key for an unknown site.
func (c *SiteConfig) Validate(source string) error {
	name := strings.TrimSpace(c.HTMLFileName)
	if name == "" {
		return lerrors.NewInvalidConfig(source, KeyHTMLFileName, "is required")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return lerrors.NewInvalidConfig(source, KeyHTMLFileName, fmt.Sprintf("%q must be a bare file name", c.HTMLFileName))
	}
	if strings.HasSuffix(strings.ToLower(name), ".html") {
		return lerrors.NewInvalidConfig(source, KeyHTMLFileName, fmt.Sprintf("%q must not carry the .html extension", c.HTMLFileName))
	}

	if len(c.Domain) == 0 {
		return lerrors.NewInvalidConfig(source, KeyDomain, "at least one site is required")
	}
	for _, site := range c.Sites() {
		if err := validateSiteName(site); err != nil {
			return lerrors.NewInvalidConfig(source, KeyDomain+"."+site, err.Error())
		}
		if err := validation.HTTPURL(c.Domain[site]); err != nil {
			return lerrors.NewInvalidConfig(source, KeyDomain+"."+site, err.Error())
		}
	}

	for site, value := range c.CDNURL {
		if _, ok := c.Domain[site]; !ok {
			return lerrors.NewInvalidConfig(source, KeyCDNURL+"."+site, "site is not listed under domain")
		}
		if strings.TrimSpace(value) == "" {
			return lerrors.NewInvalidConfig(source, KeyCDNURL+"."+site, "must not be empty")
		}
	}
	for site, value := range c.GTMCode {
		if _, ok := c.Domain[site]; !ok {
			return lerrors.NewInvalidConfig(source, KeyGTMCode+"."+site, "site is not listed under domain")
		}
		if strings.TrimSpace(value) == "" {
			return lerrors.NewInvalidConfig(source, KeyGTMCode+"."+site, "must not be empty")
		}
	}

	return nil
}

// ValidateFTP checks that the credentials needed for an FTP deploy exist.
func (c *SiteConfig) ValidateFTP(source string) error {
	if c.FTP.Host == "" {
		return lerrors.NewInvalidConfig(source, KeyFTP+".host", "is required for ftp deploy")
	}
	if c.FTP.User == "" {
		return lerrors.NewInvalidConfig(source, KeyFTP+".user", "is required for ftp deploy")
	}
	return nil
}

// Sites returns the configured site identifiers in sorted order.
func (c *SiteConfig) Sites() []string {
	sites := make([]string, 0, len(c.Domain))
	for site := range c.Domain {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites
}

// DomainFor returns the domain root of site.
func (c *SiteConfig) DomainFor(site string) (string, bool) {
	v, ok := c.Domain[site]
	return v, ok
}

// CDNFor returns the CDN host of site.
func (c *SiteConfig) CDNFor(site string) (string, bool) {
	v, ok := c.CDNURL[site]
	return v, ok
}

// GTMFor returns the analytics code of site.
func (c *SiteConfig) GTMFor(site string) (string, bool) {
	v, ok := c.GTMCode[site]
	return v, ok
}

// MissingKeys lists the sites lacking a cdn_url or gtm_code. These gaps are
// not fatal: the affected field is left out of the page data.
func (c *SiteConfig) MissingKeys() []MissingKey {
	var missing []MissingKey
	for _, site := range c.Sites() {
		if _, ok := c.CDNURL[site]; !ok {
			missing = append(missing, MissingKey{Site: site, Key: KeyCDNURL})
		}
		if _, ok := c.GTMCode[site]; !ok {
			missing = append(missing, MissingKey{Site: site, Key: KeyGTMCode})
		}
	}
	return missing
}

func validateSiteName(site string) error {
	if site == "" {
		return fmt.Errorf("site identifier cannot be empty")
	}
	if strings.ContainsAny(site, `/\ `) {
		return fmt.Errorf("site identifier %q must be a single directory name", site)
	}
	return nil
}
