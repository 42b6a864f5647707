package response

import (
	"reflect"
	"testing"
)

const successBody = `<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas">
  <cas:authenticationSuccess>
    <cas:user>alice</cas:user>
    <cas:proxyGrantingTicket>PGTIOU-1-abc</cas:proxyGrantingTicket>
  </cas:authenticationSuccess>
</cas:serviceResponse>`

const failureBody = `<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas">
  <cas:authenticationFailure code="INVALID_TICKET">Ticket ST-1856339 not recognized</cas:authenticationFailure>
</cas:serviceResponse>`

const attributeBody = `<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas">
  <cas:authenticationSuccess>
    <cas:user>bob</cas:user>
    <cas:attributes>
      <cas:email>bob@example.org</cas:email>
      <cas:memberOf>staff</cas:memberOf>
      <cas:memberOf>admins</cas:memberOf>
      <cas:memberOf>auditors</cas:memberOf>
    </cas:attributes>
  </cas:authenticationSuccess>
</cas:serviceResponse>`

func TestExtractSuccess(t *testing.T) {
	extraction := Extract(successBody)

	if extraction.Failure != nil {
		t.Fatalf("unexpected failure: %+v", extraction.Failure)
	}
	if extraction.Principal != "alice" {
		t.Fatalf("expected principal alice, got %q", extraction.Principal)
	}
	if extraction.PGTField != "PGTIOU-1-abc" {
		t.Fatalf("expected PGT field PGTIOU-1-abc, got %q", extraction.PGTField)
	}
	if len(extraction.Attributes) != 0 {
		t.Fatalf("expected no attributes, got %v", extraction.Attributes)
	}
}

func TestExtractFailure(t *testing.T) {
	extraction := Extract(failureBody)

	if extraction.Failure == nil {
		t.Fatal("expected a failure")
	}
	if extraction.Failure.Code != "INVALID_TICKET" {
		t.Fatalf("expected code INVALID_TICKET, got %q", extraction.Failure.Code)
	}
	if extraction.Failure.Message != "Ticket ST-1856339 not recognized" {
		t.Fatalf("unexpected message %q", extraction.Failure.Message)
	}
}

func TestExtractFailureBlankMessageIsNotFailure(t *testing.T) {
	body := `<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas">
  <cas:authenticationFailure code="INVALID_TICKET">   </cas:authenticationFailure>
</cas:serviceResponse>`

	extraction := Extract(body)
	if extraction.Failure != nil {
		t.Fatalf("blank failure text must not count as a failure, got %+v", extraction.Failure)
	}
}

func TestExtractAttributes(t *testing.T) {
	extraction := Extract(attributeBody)

	want := map[string]any{
		"email":    "bob@example.org",
		"memberOf": []string{"staff", "admins", "auditors"},
	}
	if !reflect.DeepEqual(extraction.Attributes, want) {
		t.Fatalf("attributes mismatch:\n got %v\nwant %v", extraction.Attributes, want)
	}
}

func TestExtractAttributesScalarStaysScalar(t *testing.T) {
	body := `<response><authenticationSuccess><user>carol</user>
  <attributes><displayName>Carol</displayName></attributes>
</authenticationSuccess></response>`

	extraction := Extract(body)
	value, ok := extraction.Attributes["displayName"].(string)
	if !ok {
		t.Fatalf("single-valued attribute must stay a scalar, got %T", extraction.Attributes["displayName"])
	}
	if value != "Carol" {
		t.Fatalf("expected Carol, got %q", value)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	first := Extract(attributeBody)
	second := Extract(attributeBody)

	if !reflect.DeepEqual(first.Attributes, second.Attributes) {
		t.Fatalf("repeated extraction differs:\n %v\n %v", first.Attributes, second.Attributes)
	}
}

func TestExtractMalformedAttributesDegrade(t *testing.T) {
	body := `<response><authenticationSuccess><user>dave</user><attributes><a>1</b></attributes>`

	extraction := Extract(body)
	if len(extraction.Attributes) != 0 {
		t.Fatalf("malformed body must yield an empty attribute map, got %v", extraction.Attributes)
	}
}

func TestExtractNamespaceAgnostic(t *testing.T) {
	plain := `<serviceResponse><authenticationSuccess><user>erin</user></authenticationSuccess></serviceResponse>`

	if got := Extract(plain).Principal; got != "erin" {
		t.Fatalf("expected erin, got %q", got)
	}
	if got := Extract(successBody).Principal; got != "alice" {
		t.Fatalf("expected alice, got %q", got)
	}
}

func TestTextForElementMissing(t *testing.T) {
	if got := TextForElement(successBody, "proxyTicket"); got != "" {
		t.Fatalf("expected empty text for missing element, got %q", got)
	}
}
