package e2e

import (
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// E2ETestSuite provides a test suite for end-to-end tests
type E2ETestSuite struct {
	suite.Suite
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	expect  playwright.PlaywrightAssertions

	username string
	password string
}

// SetupSuite runs once before all tests
func (suite *E2ETestSuite) SetupSuite() {
	pw, err := playwright.Run()
	require.NoError(suite.T(), err, "could not launch playwright")
	suite.pw = pw

	browser, err := pw.Chromium.Launch()
	require.NoError(suite.T(), err, "could not launch chromium")
	suite.browser = browser

	suite.expect = playwright.NewPlaywrightAssertions()
}

// TearDownSuite runs once after all tests
func (suite *E2ETestSuite) TearDownSuite() {
	if suite.browser != nil {
		suite.browser.Close()
	}
	if suite.pw != nil {
		suite.pw.Stop()
	}
}

// SetupTest runs before each test
func (suite *E2ETestSuite) SetupTest() {
	page, err := suite.browser.NewPage()
	require.NoError(suite.T(), err, "could not create page")
	suite.page = page

	// Fresh account per test so state never leaks between runs
	suite.username = fmt.Sprintf("user%d", time.Now().UnixNano())
	suite.password = "testpass123"

	_, err = suite.page.Goto(appURL)
	require.NoError(suite.T(), err, "could not navigate to app")
}

// TearDownTest runs after each test
func (suite *E2ETestSuite) TearDownTest() {
	if suite.page != nil {
		suite.page.Close()
	}
}

func (suite *E2ETestSuite) register() {
	_, err := suite.page.Goto(appURL + "/register")
	require.NoError(suite.T(), err, "could not open registration page")

	err = suite.expect.Locator(suite.page.Locator(".register-form")).ToBeVisible()
	require.NoError(suite.T(), err, "registration form not visible")

	err = suite.page.Locator("input[name=username]").Fill(suite.username)
	require.NoError(suite.T(), err, "failed to fill username")

	err = suite.page.Locator("input[name=password]").Fill(suite.password)
	require.NoError(suite.T(), err, "failed to fill password")

	err = suite.page.Locator("input[name=confirm_password]").Fill(suite.password)
	require.NoError(suite.T(), err, "failed to fill password confirmation")

	err = suite.page.Locator(".register-btn").Click()
	require.NoError(suite.T(), err, "failed to submit registration")

	// Registration redirects to the login page
	err = suite.expect.Locator(suite.page.Locator(".login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "did not land on login page after registration")
}

func (suite *E2ETestSuite) login() {
	err := suite.expect.Locator(suite.page.Locator(".login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "login form not visible")

	err = suite.page.Locator("input[name=username]").Fill(suite.username)
	require.NoError(suite.T(), err, "failed to fill username")

	err = suite.page.Locator("input[name=password]").Fill(suite.password)
	require.NoError(suite.T(), err, "failed to fill password")

	err = suite.page.Locator(".login-btn").Click()
	require.NoError(suite.T(), err, "failed to click login")

	// Wait for redirect to the dashboard
	err = suite.expect.Locator(suite.page.Locator(".dashboard")).ToBeVisible()
	require.NoError(suite.T(), err, "did not redirect to dashboard after login")
}

func (suite *E2ETestSuite) addExpense(amount, description string) {
	err := suite.page.Locator("a.add-expense").Click()
	require.NoError(suite.T(), err, "failed to open expense form")

	err = suite.expect.Locator(suite.page.Locator("#expense-form")).ToBeVisible()
	require.NoError(suite.T(), err, "expense form not visible")

	err = suite.page.Locator("input[name=amount]").Fill(amount)
	require.NoError(suite.T(), err, "failed to fill amount")

	err = suite.page.Locator("input[name=description]").Fill(description)
	require.NoError(suite.T(), err, "failed to fill description")

	err = suite.page.Locator("button.submit").Click()
	require.NoError(suite.T(), err, "failed to submit expense")

	err = suite.expect.Locator(suite.page.Locator(".dashboard")).ToBeVisible()
	require.NoError(suite.T(), err, "did not return to dashboard after adding expense")
}

func (suite *E2ETestSuite) TestCompleteUserFlow() {
	suite.register()
	suite.login()

	// Empty dashboard
	err := suite.expect.Locator(suite.page.Locator("#total-spent")).ToHaveText("0.00")
	require.NoError(suite.T(), err, "fresh account should start at zero")

	// Add two expenses and watch the total
	suite.addExpense("12.50", "Coffee")
	err = suite.expect.Locator(suite.page.Locator("#total-spent")).ToHaveText("12.50")
	require.NoError(suite.T(), err, "total mismatch after first expense")

	suite.addExpense("7.5", "Bus ticket")
	err = suite.expect.Locator(suite.page.Locator("#total-spent")).ToHaveText("20.00")
	require.NoError(suite.T(), err, "total mismatch after second expense")

	err = suite.expect.Locator(suite.page.Locator(".expense-item")).ToHaveCount(2)
	require.NoError(suite.T(), err, "expense item count mismatch")

	item := suite.page.Locator(".expense-item").First()
	err = suite.expect.Locator(item.Locator(".expense-details strong")).ToHaveText("Coffee")
	require.NoError(suite.T(), err, "description mismatch")

	err = suite.expect.Locator(item.Locator(".expense-amount")).ToContainText("12.50")
	require.NoError(suite.T(), err, "amount mismatch")

	// Delete the first expense; the total drops to what remains
	err = item.Locator(".delete-btn").Click()
	require.NoError(suite.T(), err, "failed to delete expense")

	err = suite.expect.Locator(suite.page.Locator(".expense-item")).ToHaveCount(1)
	require.NoError(suite.T(), err, "expense should be gone after delete")

	err = suite.expect.Locator(suite.page.Locator("#total-spent")).ToHaveText("7.50")
	require.NoError(suite.T(), err, "total mismatch after delete")
}

func (suite *E2ETestSuite) TestEditExpense() {
	suite.register()
	suite.login()
	suite.addExpense("10.00", "Lunch")

	err := suite.page.Locator(".expense-item").First().Locator("a:text-is('Edit')").Click()
	require.NoError(suite.T(), err, "failed to open edit form")

	err = suite.expect.Locator(suite.page.Locator("#expense-form")).ToBeVisible()
	require.NoError(suite.T(), err, "edit form not visible")

	err = suite.page.Locator("input[name=amount]").Fill("12.50")
	require.NoError(suite.T(), err, "failed to change amount")

	err = suite.page.Locator("button.submit").Click()
	require.NoError(suite.T(), err, "failed to save changes")

	err = suite.expect.Locator(suite.page.Locator("#total-spent")).ToHaveText("12.50")
	require.NoError(suite.T(), err, "total should reflect the edited amount")
}

func (suite *E2ETestSuite) TestDashboardRequiresLogin() {
	_, err := suite.page.Goto(appURL + "/dashboard")
	require.NoError(suite.T(), err, "could not navigate to dashboard")

	// Anonymous visitors land on the login form instead
	err = suite.expect.Locator(suite.page.Locator(".login-form")).ToBeVisible()
	require.NoError(suite.T(), err, "anonymous dashboard visit should end up on login")
}

// TestE2ESuite runs the e2e test suite
func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
