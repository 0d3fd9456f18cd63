package httpserver_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/authdemo/internal/authdemo/clock"
	"finitefield.org/authdemo/internal/authdemo/forms"
	"finitefield.org/authdemo/internal/authdemo/testutil"
)

func signUpValues() url.Values {
	return url.Values{
		"fullName":        {"Ava Lee"},
		"email":           {"ava.lee@gmail.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	}
}

func login(t *testing.T, c *testutil.Client) {
	t.Helper()

	require.Equal(t, http.StatusOK, c.Get("/login").StatusCode)
	res := c.HXPost("/login", "", url.Values{"email": {"ava.lee@gmail.com"}, "password": {"x"}})
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "/", res.Header.Get("HX-Redirect"))
}

func TestAnonymousVisitorIsSentToSignUp(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	c := testutil.NewClient(t, ts)

	for _, path := range []string{"/", "/about", "/contact"} {
		res := c.Get(path)
		require.Equal(t, http.StatusFound, res.StatusCode, path)
		require.Equal(t, "/signup?from="+url.QueryEscape(path), res.Header.Get("Location"), path)
	}

	res := c.Get("/no-such-page")
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "/", res.Header.Get("Location"))

	res = c.Get("/login")
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc := testutil.ParseHTML(t, res.Body)
	require.Equal(t, "Login to Your Account", doc.Find(".auth__title").Text())
	require.Equal(t, 0, doc.Find(".navbar__logout").Length())
	require.Equal(t, "test", testutil.Text(doc, ".navbar__env"))
}

func TestSignUpFlowAuthenticatesAndLandsHome(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	c := testutil.NewClient(t, ts)

	res := c.Get("/signup?from=%2Fabout")
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc := testutil.ParseHTML(t, res.Body)
	require.Equal(t, "/about", doc.Find(`#signup-form input[name="from"]`).AttrOr("value", ""))

	res = c.HXPost("/signup/events", "email", url.Values{"email": {"ava@yahoo.com"}, "event": {"input"}})
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc = testutil.ParseHTML(t, res.Body)
	require.Equal(t, "Only valid Gmail addresses are allowed", testutil.Text(doc, "#signup-email-feedback"))
	require.Equal(t, 0, doc.Find("input").Length())

	for field, value := range signUpValues() {
		res = c.HXPost("/signup/events", field, url.Values{field: value, "event": {"blur"}})
		require.Equal(t, http.StatusOK, res.StatusCode, field)
	}
	doc = testutil.ParseHTML(t, res.Body)
	require.Equal(t, 0, doc.Find(".field__error").Length())

	res = c.HXPost("/signup", "", signUpValues())
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "/", res.Header.Get("HX-Redirect"))

	res = c.Get("/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc = testutil.ParseHTML(t, res.Body)
	require.Equal(t, "Our Users", doc.Find("h1").First().Text())
	require.Equal(t, 3, doc.Find(".user-card").Length())
	require.Equal(t, 1, doc.Find(".navbar__logout").Length())
	require.Equal(t, forms.SignUpSuccessMessage, testutil.Text(doc, "#toasts .toast--success"))

	// Toasts are delivered once.
	doc = testutil.ParseHTML(t, c.Get("/").Body)
	require.Equal(t, 0, doc.Find("#toasts .toast").Length())

	res = c.Get("/signup")
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "/", res.Header.Get("Location"))
	require.Equal(t, http.StatusOK, c.Get("/about").StatusCode)
}

func TestInvalidSignUpStaysLoggedOut(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	c := testutil.NewClient(t, ts)
	require.Equal(t, http.StatusOK, c.Get("/signup").StatusCode)

	values := signUpValues()
	values.Set("email", "ava@yahoo.com")
	values.Set("confirmPassword", "secret2")
	res := c.Post("/signup", values)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	doc := testutil.ParseHTML(t, res.Body)
	require.Equal(t, "Only valid Gmail addresses are allowed", testutil.Text(doc, "#signup-email-feedback"))
	require.Equal(t, "Passwords do not match", testutil.Text(doc, "#signup-confirmPassword-feedback"))
	require.Equal(t, "Ava Lee", doc.Find("#signup-fullName").AttrOr("value", ""))
	require.Equal(t, forms.CredentialsMessage, testutil.Text(doc, "#toasts .toast--error"))
	require.Equal(t, "rejected", doc.Find("#signup-form").AttrOr("data-phase", ""))

	res = c.Get("/")
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "/signup?from=%2F", res.Header.Get("Location"))
}

func TestPasswordVisibilityToggle(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	c := testutil.NewClient(t, ts)
	require.Equal(t, http.StatusOK, c.Get("/signup").StatusCode)

	toggle := url.Values{"field": {"password"}, "event": {"toggle"}}
	doc := testutil.ParseHTML(t, c.HXPost("/signup/events", "", toggle).Body)
	require.Equal(t, "text", doc.Find("#signup-password").AttrOr("type", ""))
	require.Equal(t, "password", doc.Find("#signup-confirmPassword").AttrOr("type", ""))
	require.Equal(t, "Hide", strings.TrimSpace(doc.Find("#signup-password").Parent().Find("button").Text()))

	doc = testutil.ParseHTML(t, c.HXPost("/signup/events", "", toggle).Body)
	require.Equal(t, "password", doc.Find("#signup-password").AttrOr("type", ""))
}

func TestFormEventsRejectBadInput(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	c := testutil.NewClient(t, ts)
	require.Equal(t, http.StatusOK, c.Get("/login").StatusCode)

	res := c.HXPost("/login/events", "nickname", url.Values{"nickname": {"ava"}})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = c.HXPost("/login/events", "email", url.Values{"email": {"a"}, "event": {"wheel"}})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = c.Post("/login/events", url.Values{"field": {"email"}})
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	// Events for a form that was never mounted ask the page to reload.
	res = c.HXPost("/signup/events", "email", url.Values{"email": {"a"}})
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "true", res.Header.Get("HX-Refresh"))
}

func TestSubmitWhileSubmittingIsIgnored(t *testing.T) {
	t.Parallel()

	manual := clock.NewManual()
	ts := testutil.NewServer(t, testutil.WithScheduler(manual))
	c := testutil.NewClient(t, ts)
	require.Equal(t, http.StatusOK, c.Get("/login").StatusCode)

	values := url.Values{"email": {"ava.lee@gmail.com"}, "password": {"pw"}}
	res := c.HXPost("/login", "", values)
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc := testutil.ParseHTML(t, res.Body)
	require.Equal(t, "submitting", doc.Find("#login-form").AttrOr("data-phase", ""))
	_, disabled := doc.Find(`#login-form button[type="submit"]`).Attr("disabled")
	require.True(t, disabled)
	require.Equal(t, "/login/status", doc.Find(".form__pending").AttrOr("hx-get", ""))

	values.Set("email", "someone.else@gmail.com")
	res = c.HXPost("/login", "", values)
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc = testutil.ParseHTML(t, res.Body)
	require.Equal(t, "ava.lee@gmail.com", doc.Find("#login-email").AttrOr("value", ""))
	require.Equal(t, 1, manual.Pending())

	res = c.HXGet("/login/status")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "submitting", testutil.ParseHTML(t, res.Body).Find("#login-form").AttrOr("data-phase", ""))

	manual.FireAll()

	res = c.HXGet("/login/status")
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, "/", res.Header.Get("HX-Redirect"))

	doc = testutil.ParseHTML(t, c.Get("/").Body)
	require.Equal(t, forms.LoginSuccessMessage, testutil.Text(doc, "#toasts .toast--success"))
}

func TestLeavingPageDropsPendingSubmission(t *testing.T) {
	t.Parallel()

	manual := clock.NewManual()
	ts := testutil.NewServer(t, testutil.WithScheduler(manual))
	c := testutil.NewClient(t, ts)
	require.Equal(t, http.StatusOK, c.Get("/signup").StatusCode)

	res := c.HXPost("/signup", "", signUpValues())
	require.Equal(t, http.StatusOK, res.StatusCode)

	require.Equal(t, http.StatusOK, c.Get("/login").StatusCode)
	manual.FireAll()

	res = c.Get("/")
	require.Equal(t, http.StatusFound, res.StatusCode)
	doc := testutil.ParseHTML(t, c.Get("/login").Body)
	require.Equal(t, 0, doc.Find("#toasts .toast").Length())
}

func TestLogoutReturnsToLogin(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	c := testutil.NewClient(t, ts)
	login(t, c)

	res := c.Post("/logout", url.Values{})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/login", res.Header.Get("Location"))

	res = c.Get("/about")
	require.Equal(t, http.StatusFound, res.StatusCode)
	require.Equal(t, "/signup?from=%2Fabout", res.Header.Get("Location"))

	doc := testutil.ParseHTML(t, c.Get("/login").Body)
	require.Equal(t, 0, doc.Find(".navbar__logout").Length())
	require.True(t, doc.Find(`nav a[href="/login"]`).HasClass("is-active"))
}

func TestContactFormResetsAfterSending(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	c := testutil.NewClient(t, ts)
	login(t, c)

	res := c.Get("/contact")
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc := testutil.ParseHTML(t, res.Body)
	require.Equal(t, "Get in Touch", doc.Find("h1.page-title").Text())
	require.True(t, doc.Find(`nav a[href="/contact"]`).HasClass("is-active"))

	res = c.Post("/contact", url.Values{"name": {""}, "email": {"not-an-email"}, "message": {""}})
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	doc = testutil.ParseHTML(t, res.Body)
	require.Equal(t, "Please enter a valid email address", testutil.Text(doc, "#contact-email-feedback"))
	require.Equal(t, forms.ContactMissingMessage, testutil.Text(doc, "#toasts .toast--error"))

	res = c.HXPost("/contact", "", url.Values{
		"name":    {"Ava Lee"},
		"email":   {"ava@example.com"},
		"message": {"Hello there"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc = testutil.ParseHTML(t, res.Body)
	require.Empty(t, doc.Find("#contact-name").AttrOr("value", ""))
	require.Empty(t, testutil.Text(doc, "#contact-message"))
	require.Equal(t, 0, doc.Find(".field__error").Length())
	require.Equal(t, forms.ContactSuccessMessage, testutil.Text(doc, `#toasts[hx-swap-oob] .toast--success`))
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	c := testutil.NewClient(t, ts)

	res := c.Get("/healthz")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "ok", string(res.Body))

	require.Equal(t, http.StatusFound, c.Get("/about").StatusCode)
	login(t, c)

	res = c.Get("/metrics")
	require.Equal(t, http.StatusOK, res.StatusCode)
	body := string(res.Body)
	require.Contains(t, body, `authdemo_form_submissions_total{form="login",outcome="succeeded"} 1`)
	require.Contains(t, body, `authdemo_guard_redirects_total{target="/signup"} 1`)
	require.Contains(t, body, `authdemo_session_transitions_total{direction="login"} 1`)
	require.Contains(t, body, "authdemo_visitors 1")
}

func TestStaticAssetsAreServed(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	c := testutil.NewClient(t, ts)

	res := c.Get("/public/static/app.js")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(res.Body), "htmx:configRequest")
	require.Equal(t, 0, ts.Registry.Len())
}
