package inform

import (
	"strings"

	"github.com/jordan-wright/email"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// SimpleEmailMaker builds notification emails from configured templates.
// Templates use {{ID}}, {{URL}} and {{DATE}} placeholders
type SimpleEmailMaker struct {
	url string
	c   *viper.Viper
}

func newSimpleEmailMaker(c *viper.Viper) (*SimpleEmailMaker, error) {
	r := SimpleEmailMaker{c: c}
	var err error
	r.url, err = getStringNonNil(c, "mail.url")
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Make prepares the email for the notification
func (maker *SimpleEmailMaker) Make(data *Data) (*email.Email, error) {
	r := email.NewEmail()
	var err error
	r.Subject, err = getStringNonNil(maker.c, "mail."+data.MsgType+".subject")
	if err != nil {
		return nil, err
	}
	text, err := maker.getText(data)
	if err != nil {
		return nil, err
	}
	r.Text = []byte(text)
	r.To = []string{data.Email}
	r.From, err = getStringNonNil(maker.c, "smtp.username")
	return r, err
}

func (maker *SimpleEmailMaker) getText(data *Data) (string, error) {
	r, err := getStringNonNil(maker.c, "mail."+data.MsgType+".text")
	if err != nil {
		return "", err
	}
	url := strings.Replace(maker.url, "{{ID}}", data.ID, -1)
	r = strings.Replace(r, "{{ID}}", data.ID, -1)
	r = strings.Replace(r, "{{URL}}", url, -1)
	t := data.MsgTime.Format("2006-01-02 15:04:05")
	r = strings.Replace(r, "{{DATE}}", t, -1)
	return r, nil
}

func getStringNonNil(c *viper.Viper, key string) (string, error) {
	r := c.GetString(key)
	if r == "" {
		return "", errors.New("no setting " + key)
	}
	return r, nil
}
