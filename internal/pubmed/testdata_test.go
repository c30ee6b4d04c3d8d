// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

const sampleEfetchXML = `<?xml version="1.0" ?>
<!DOCTYPE PubmedArticleSet PUBLIC "-//NLM//DTD PubMedArticle, 1st January 2025//EN" "https://dtd.nlm.nih.gov/ncbi/pubmed/out/pubmed_250101.dtd">
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation Status="MEDLINE" Owner="NLM">
      <PMID Version="1">40111111</PMID>
      <Article PubModel="Print">
        <Journal>
          <Title>Lancet (London, England)</Title>
          <JournalIssue CitedMedium="Internet">
            <PubDate><Year>2025</Year><Month>Apr</Month><Day>12</Day></PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>Polygenic risk scores for <i>early</i> cardiovascular prevention.</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Risk prediction is imperfect.</AbstractText>
          <AbstractText Label="METHODS">We enrolled 12 000 adults (HbA<sub>1c</sub> &lt; 6.5%).</AbstractText>
          <AbstractText Label="FINDINGS">Events fell by 18%.</AbstractText>
        </Abstract>
        <AuthorList CompleteYN="Y">
          <Author ValidYN="Y"><LastName>Okafor</LastName><ForeName>Ada</ForeName><Initials>A</Initials></Author>
          <Author ValidYN="Y"><LastName>Lindqvist</LastName><Initials>P</Initials></Author>
          <Author ValidYN="Y"><CollectiveName>PRS-PREVENT Investigators</CollectiveName></Author>
        </AuthorList>
        <PublicationTypeList>
          <PublicationType UI="D016428">Journal Article</PublicationType>
          <PublicationType UI="D016449">Randomized Controlled Trial</PublicationType>
        </PublicationTypeList>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation Status="PubMed-not-MEDLINE" Owner="NLM">
      <PMID Version="1">40222222</PMID>
      <Article PubModel="Electronic">
        <Journal>
          <Title>The New England journal of medicine</Title>
          <JournalIssue><PubDate><Year>2025</Year><Month>May</Month></PubDate></JournalIssue>
        </Journal>
        <ArticleTitle>Patient-reported outcomes in shared decision making.</ArticleTitle>
        <Abstract>
          <AbstractText>Patients who co-designed their care plans reported higher adherence.</AbstractText>
        </Abstract>
        <PublicationTypeList>
          <PublicationType UI="D016454">Review</PublicationType>
        </PublicationTypeList>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">40333333</PMID>
      <Article>
        <Journal>
          <Title>BMJ</Title>
          <JournalIssue><PubDate><MedlineDate>2025 Mar-Apr</MedlineDate></PubDate></JournalIssue>
        </Journal>
        <ArticleTitle>Editorial without abstract.</ArticleTitle>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
  <PubmedArticle>
    <PubmedData><ArticleIdList><ArticleId IdType="pubmed">40444444</ArticleId></ArticleIdList></PubmedData>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation><PMID Version="1">40555555</PMID></MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

const sampleEsearchJSON = `{
  "header": {"type": "esearch", "version": "0.3"},
  "esearchresult": {
    "count": "3",
    "retmax": "3",
    "retstart": "0",
    "idlist": ["40111111", "40222222", "40333333"]
  }
}`
